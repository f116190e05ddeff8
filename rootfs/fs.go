package rootfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/rootimg/image"
	"github.com/dendrascience/rootimg/toolchain"
)

// FS implements a read-only FUSE filesystem over a build index.
type FS struct {
	Index     *image.Index
	ObjectDir string // directory holding one file per ObjectID

	inodes  *inodes
	mounted time.Time
}

var _ fs.FS = (*FS)(nil)

// New returns a filesystem serving idx with object contents read from objectDir.
func New(idx *image.Index, objectDir string) *FS {
	f := &FS{
		Index:     idx,
		ObjectDir: objectDir,
		inodes:    newInodes(),
		mounted:   time.Now(),
	}
	// the root directory gets inode 1
	f.inodes.get(dirKey(idx.Root))
	return f
}

// Open reads the index of buildDir and returns a filesystem over its object store.
func Open(buildDir string) (*FS, error) {
	idx, err := image.ReadIndex(filepath.Join(buildDir, image.IndexName))
	if err != nil {
		return nil, err
	}
	return New(idx, filepath.Join(buildDir, image.ObjectDir)), nil
}

// Root returns the root directory node.
func (f *FS) Root() (fs.Node, error) {
	ns, ok := f.Index.NamespaceByID(f.Index.Root)
	if !ok {
		return nil, fmt.Errorf("index has no namespace for root %s", f.Index.Root)
	}
	return &Dir{fs: f, ns: ns}, nil
}

func (f *FS) node(owner toolchain.ObjectID, e image.IndexEntry) (fs.Node, error) {
	switch e.Line().Tag {
	case toolchain.TagDirectory:
		ns, ok := f.Index.NamespaceByID(toolchain.ObjectID(e.Ref))
		if !ok {
			return nil, syscall.EIO
		}
		return &Dir{fs: f, ns: ns}, nil
	case toolchain.TagFile:
		return &File{fs: f, id: toolchain.ObjectID(e.Ref)}, nil
	case toolchain.TagSymlink:
		return &Symlink{fs: f, key: string(owner) + "/" + e.Name, target: e.Ref}, nil
	}
	return nil, syscall.ENOENT
}

func dirKey(id toolchain.ObjectID) string  { return "n:" + string(id) }
func fileKey(id toolchain.ObjectID) string { return "r:" + string(id) }

// Dir implements both Node and Handle for namespaces.
type Dir struct {
	fs *FS
	ns *image.IndexNamespace
}

var (
	_ fs.Node               = (*Dir)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
)

// Attr returns directory attributes.
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = d.fs.inodes.get(dirKey(d.ns.ID))
	a.Mode = os.ModeDir | 0o555
	a.Mtime = d.fs.mounted
	a.Ctime = d.fs.mounted
	a.Atime = d.fs.mounted
	return nil
}

// Lookup resolves an entry name to its node. "." and ".." are handled by the
// kernel and never looked up here.
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	for _, e := range d.entries() {
		if e.Name == name {
			return d.fs.node(d.ns.ID, e)
		}
	}
	return nil, syscall.ENOENT
}

// ReadDirAll lists the namespace's entries in serialized order.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	var dirents []fuse.Dirent
	for _, e := range d.entries() {
		de := fuse.Dirent{Name: e.Name}
		switch e.Line().Tag {
		case toolchain.TagDirectory:
			de.Type = fuse.DT_Dir
			de.Inode = d.fs.inodes.get(dirKey(toolchain.ObjectID(e.Ref)))
		case toolchain.TagFile:
			de.Type = fuse.DT_File
			de.Inode = d.fs.inodes.get(fileKey(toolchain.ObjectID(e.Ref)))
		case toolchain.TagSymlink:
			de.Type = fuse.DT_Link
			de.Inode = d.fs.inodes.get(string(d.ns.ID) + "/" + e.Name)
		default:
			continue
		}
		dirents = append(dirents, de)
	}
	return dirents, nil
}

// entries skips the self and parent lines.
func (d *Dir) entries() []image.IndexEntry {
	if len(d.ns.Entries) < 2 {
		return nil
	}
	return d.ns.Entries[2:]
}

// File is a stored object, read-only.
type File struct {
	fs *FS
	id toolchain.ObjectID
}

var (
	_ fs.Node            = (*File)(nil)
	_ fs.HandleReadAller = (*File)(nil)
)

func (f *File) path() string { return filepath.Join(f.fs.ObjectDir, string(f.id)) }

// Attr returns file attributes. Files sharing an ObjectID share an inode.
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	info, err := os.Stat(f.path())
	if err != nil {
		return syscall.EIO
	}
	a.Inode = f.fs.inodes.get(fileKey(f.id))
	a.Mode = 0o444
	a.Size = uint64(info.Size())
	a.Mtime = f.fs.mounted
	a.Ctime = f.fs.mounted
	a.Atime = f.fs.mounted
	return nil
}

// ReadAll returns the object's container bytes.
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path())
	if err != nil {
		return nil, syscall.EIO
	}
	return data, nil
}

// Symlink is a literal link target, never resolved.
type Symlink struct {
	fs     *FS
	key    string
	target string
}

var (
	_ fs.Node           = (*Symlink)(nil)
	_ fs.NodeReadlinker = (*Symlink)(nil)
)

// Attr returns symlink attributes.
func (s *Symlink) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = s.fs.inodes.get(s.key)
	a.Mode = os.ModeSymlink | 0o777
	a.Size = uint64(len(s.target))
	a.Mtime = s.fs.mounted
	a.Ctime = s.fs.mounted
	a.Atime = s.fs.mounted
	return nil
}

// Readlink returns the link target.
func (s *Symlink) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	return s.target, nil
}
