package image

import (
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/dendrascience/rootimg/compiler"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/dendrascience/rootimg/version"
	"github.com/fxamacker/cbor/v2"
)

// IndexVersion is the format version written into every index.
const IndexVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: the same build yields the same index bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("image: cbor encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("image: cbor decoder initialization failed: " + err.Error())
	}
}

// Index records the namespace graph of a finished build so it can be verified,
// inspected and mounted without rerunning the toolchain.
type Index struct {
	Version    int                           `cbor:"version" yaml:"version"`
	BuildID    string                        `cbor:"build_id" yaml:"build_id"`
	Tool       version.Info                  `cbor:"tool" yaml:"tool"`
	Source     string                        `cbor:"source" yaml:"source"`
	Root       toolchain.ObjectID            `cbor:"root" yaml:"root"`
	Init       toolchain.ObjectID            `cbor:"init" yaml:"init"`
	InitPath   string                        `cbor:"init_path" yaml:"init_path"`
	Objects    []toolchain.ObjectID          `cbor:"objects" yaml:"objects"`
	Namespaces []IndexNamespace              `cbor:"namespaces" yaml:"namespaces"`
	Files      map[string]toolchain.ObjectID `cbor:"files" yaml:"files"`
}

// IndexNamespace is one serialized directory.
type IndexNamespace struct {
	Path    string             `cbor:"path" yaml:"path"`
	Name    string             `cbor:"name" yaml:"name"`
	ID      toolchain.ObjectID `cbor:"id" yaml:"id"`
	Parent  toolchain.ObjectID `cbor:"parent" yaml:"parent"`
	Entries []IndexEntry       `cbor:"entries" yaml:"entries"`
}

// IndexEntry is one hierarchy line.
type IndexEntry struct {
	Tag  string `cbor:"tag" yaml:"tag"`
	Ref  string `cbor:"ref" yaml:"ref"`
	Name string `cbor:"name" yaml:"name"`
}

// Line converts e back to a hierarchy line.
func (e IndexEntry) Line() toolchain.Line {
	var tag toolchain.Tag
	if e.Tag != "" {
		tag = toolchain.Tag(e.Tag[0])
	}
	return toolchain.Line{Tag: tag, Ref: e.Ref, Name: e.Name}
}

// NewIndex builds an index from a compile result. objects lists every retained
// object in the store.
func NewIndex(res *compiler.Result, objects []toolchain.ObjectID) *Index {
	idx := &Index{
		Version:    IndexVersion,
		Tool:       version.GetInfo(),
		Root:       res.Root,
		Objects:    slices.Clone(objects),
		Namespaces: make([]IndexNamespace, 0, len(res.Namespaces)),
		Files:      make(map[string]toolchain.ObjectID, len(res.Files)),
	}
	for rel, id := range res.Files {
		idx.Files[rel] = id
	}
	for _, ns := range res.Namespaces {
		in := IndexNamespace{
			Path:    ns.Path,
			Name:    ns.Name,
			ID:      ns.ID,
			Parent:  ns.Parent,
			Entries: make([]IndexEntry, 0, len(ns.Lines)),
		}
		for _, l := range ns.Lines {
			in.Entries = append(in.Entries, IndexEntry{Tag: string(l.Tag), Ref: l.Ref, Name: l.Name})
		}
		idx.Namespaces = append(idx.Namespaces, in)
	}
	slices.SortFunc(idx.Namespaces, func(a, b IndexNamespace) int { return strings.Compare(a.Path, b.Path) })
	return idx
}

// Namespace returns the namespace whose source-relative path is p ("" or "." for
// the root).
func (idx *Index) Namespace(p string) (*IndexNamespace, bool) {
	p = cleanRel(p)
	for i := range idx.Namespaces {
		if idx.Namespaces[i].Path == p {
			return &idx.Namespaces[i], true
		}
	}
	return nil, false
}

// NamespaceByID returns the namespace with the given id.
func (idx *Index) NamespaceByID(id toolchain.ObjectID) (*IndexNamespace, bool) {
	for i := range idx.Namespaces {
		if idx.Namespaces[i].ID == id {
			return &idx.Namespaces[i], true
		}
	}
	return nil, false
}

// Lookup resolves a source-relative path to its hierarchy entry. The root resolves to
// its own "." entry.
func (idx *Index) Lookup(p string) (IndexEntry, error) {
	p = cleanRel(p)
	if p == "" {
		root, ok := idx.Namespace("")
		if !ok || len(root.Entries) == 0 {
			return IndexEntry{}, fmt.Errorf("%w: index has no root namespace", os.ErrNotExist)
		}
		return root.Entries[0], nil
	}
	dir, name := path.Split(p)
	ns, ok := idx.Namespace(strings.TrimSuffix(dir, "/"))
	if !ok {
		return IndexEntry{}, fmt.Errorf("%w: %s", os.ErrNotExist, p)
	}
	for _, e := range ns.Entries {
		if e.Name == name {
			return e, nil
		}
	}
	return IndexEntry{}, fmt.Errorf("%w: %s", os.ErrNotExist, p)
}

func cleanRel(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// WriteIndex writes idx to path atomically.
func WriteIndex(path string, idx *Index) error {
	data, err := encMode.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return writeAtomic(path, data)
}

// ReadIndex reads the index at path.
func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := decMode.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", path, err)
	}
	if idx.Version != IndexVersion {
		return nil, fmt.Errorf("%w: %d", ErrIndexVersion, idx.Version)
	}
	return &idx, nil
}
