package compiler

import (
	"github.com/dendrascience/rootimg/toolchain"
)

// Namespace records one serialized directory.
type Namespace struct {
	// Path is relative to the source root, "" for the root.
	Path   string
	Name   string
	ID     toolchain.ObjectID
	Parent toolchain.ObjectID
	// Lines is the full entry list as serialized, "." and ".." first.
	Lines []toolchain.Line
}

// Result is what a Compile produced.
type Result struct {
	Root       toolchain.ObjectID
	Namespaces []Namespace // sorted by Path
	// Files maps each regular file's source-relative path to its ObjectID.
	Files map[string]toolchain.ObjectID
}

// File returns the ObjectID of the file at rel.
func (r *Result) File(rel string) (toolchain.ObjectID, bool) {
	id, ok := r.Files[rel]
	return id, ok
}

// Namespace returns the namespace at path.
func (r *Result) Namespace(path string) (Namespace, bool) {
	for _, ns := range r.Namespaces {
		if ns.Path == path {
			return ns, true
		}
	}
	return Namespace{}, false
}

// ObjectIDs returns every distinct ObjectID the result references, namespaces
// included.
func (r *Result) ObjectIDs() map[toolchain.ObjectID]struct{} {
	ids := make(map[toolchain.ObjectID]struct{}, len(r.Files)+len(r.Namespaces))
	for _, id := range r.Files {
		ids[id] = struct{}{}
	}
	for _, ns := range r.Namespaces {
		ids[ns.ID] = struct{}{}
	}
	return ids
}
