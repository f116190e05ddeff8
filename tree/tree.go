package tree

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// RootName is the name of the top-level Node.
const RootName = "root"

// Kind classifies an Entry.
type Kind int

const (
	File Kind = iota
	Directory
	Symlink
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry is one child of a Node.
type Entry struct {
	Name string
	Kind Kind

	// Source is the host path of a File.
	Source string
	// Target is the verbatim link target of a Symlink.
	Target string
	// Child is the owned subtree of a Directory.
	Child *Node
}

// Node is one directory of the scanned tree.
type Node struct {
	// Name is the flattened node name ("root", "root_etc", ...).
	Name string
	// Path is the slash-separated path relative to the scan root; "" for the root.
	Path    string
	Entries []Entry
}

// Counts summarises a tree.
type Counts struct {
	Namespaces int
	Files      int
	Symlinks   int
	Bytes      int64
}

// Scan walks root and returns its namespace tree. Symlinks are recorded, never
// followed, even when they point at directories. Any unreadable directory or entry
// fails the whole scan.
func Scan(root string) (*Node, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Path: root, Err: ErrNotDirectory}
	}
	n := &Node{Name: RootName}
	if err := scanDir(root, n); err != nil {
		return nil, err
	}
	return n, nil
}

func scanDir(dir string, n *Node) error {
	// os.ReadDir returns entries sorted by filename
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return &ScanError{Path: dir, Err: err}
	}
	n.Entries = make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		full := filepath.Join(dir, d.Name())
		switch t := d.Type(); {
		case t&fs.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return &ScanError{Path: full, Err: err}
			}
			n.Entries = append(n.Entries, Entry{Name: d.Name(), Kind: Symlink, Target: target})
		case t.IsDir():
			child := &Node{
				Name: n.Name + "_" + d.Name(),
				Path: path.Join(n.Path, d.Name()),
			}
			if err := scanDir(full, child); err != nil {
				return err
			}
			n.Entries = append(n.Entries, Entry{Name: d.Name(), Kind: Directory, Child: child})
		case t.IsRegular():
			n.Entries = append(n.Entries, Entry{Name: d.Name(), Kind: File, Source: full})
		default:
			return &ScanError{Path: full, Err: ErrUnsupportedType}
		}
	}
	return nil
}

// EntryPath returns the slash-separated path of a child of n relative to the scan root.
func (n *Node) EntryPath(e Entry) string {
	return path.Join(n.Path, e.Name)
}

// Walk calls fn for n and every descendant Node, parents before children. Walking
// stops at the first error fn returns.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, e := range n.Entries {
		if e.Kind != Directory {
			continue
		}
		if err := e.Child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Counts tallies namespaces, files, symlinks and file bytes below n, n included.
// File sizes are read with Lstat; files that vanished since the scan count as zero.
func (n *Node) Counts() Counts {
	var c Counts
	n.Walk(func(node *Node) error {
		c.Namespaces++
		for _, e := range node.Entries {
			switch e.Kind {
			case File:
				c.Files++
				if info, err := os.Lstat(e.Source); err == nil {
					c.Bytes += info.Size()
				}
			case Symlink:
				c.Symlinks++
			}
		}
		return nil
	})
	return c
}
