package image

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dendrascience/rootimg/objstore"
	"github.com/dendrascience/rootimg/toolchain"
)

// Report is the outcome of Verify. Problems is empty for a consistent build.
type Report struct {
	Objects      int
	Namespaces   int
	Members      int
	ArchiveBytes int64
	Digest       string
	Problems     []string
}

// OK reports whether no problems were found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks a build directory for internal consistency: the manifest agrees with
// the index, every referenced object is present, every namespace starts with correct
// self and parent entries, and the archive holds exactly the retained objects plus the
// manifest and matches its recorded digest. Only the archive and manifest names of
// opts are used. An error is returned when the index itself cannot be read; everything
// else is collected in the report.
func Verify(buildDir string, opts Options) (*Report, error) {
	opts.BuildDir = buildDir
	opts.setDefaults()
	idx, err := ReadIndex(opts.IndexPath())
	if err != nil {
		return nil, err
	}
	r := &Report{Objects: len(idx.Objects), Namespaces: len(idx.Namespaces)}
	objDir := opts.ObjectPath()

	m, err := ReadManifest(filepath.Join(objDir, opts.ManifestName))
	if err != nil {
		r.addf("manifest: %v", err)
	} else {
		if m.Name != idx.Root {
			r.addf("manifest name=%s, index root is %s", m.Name, idx.Root)
		}
		if m.Init != idx.Init {
			r.addf("manifest init=%s, index init is %s", m.Init, idx.Init)
		}
	}

	present := make(map[toolchain.ObjectID]bool, len(idx.Objects))
	for _, id := range idx.Objects {
		info, err := os.Stat(filepath.Join(objDir, string(id)))
		switch {
		case err != nil:
			r.addf("object %s: %v", id, err)
		case !info.Mode().IsRegular():
			r.addf("object %s is not a regular file", id)
		default:
			present[id] = true
		}
	}
	need := func(where string, id toolchain.ObjectID) {
		if !present[id] {
			r.addf("%s references %s, which is not in the store", where, id)
		}
	}
	need("manifest", idx.Root)
	need("manifest", idx.Init)
	for rel, id := range idx.Files {
		need(rel, id)
	}
	for _, ns := range idx.Namespaces {
		verifyNamespace(r, idx, ns, need)
	}

	verifyArchive(r, opts, idx)
	return r, nil
}

func verifyNamespace(r *Report, idx *Index, ns IndexNamespace, need func(string, toolchain.ObjectID)) {
	where := ns.Path
	if where == "" {
		where = "/"
	}
	need(where, ns.ID)
	if ns.Path == "" && ns.Parent != ns.ID {
		r.addf("root namespace parent is %s, want itself", ns.Parent)
	}
	if len(ns.Entries) < 2 {
		r.addf("%s: %d entries, want at least . and ..", where, len(ns.Entries))
		return
	}
	self, parent := ns.Entries[0], ns.Entries[1]
	if self.Name != "." || self.Tag != string(toolchain.TagNamespace) || self.Ref != string(ns.ID) {
		r.addf("%s: first entry %q, want \"n %s .\"", where, self.Line(), ns.ID)
	}
	if parent.Name != ".." || parent.Tag != string(toolchain.TagNamespace) || parent.Ref != string(ns.Parent) {
		r.addf("%s: second entry %q, want \"n %s ..\"", where, parent.Line(), ns.Parent)
	}
	for _, e := range ns.Entries[2:] {
		switch e.Line().Tag {
		case toolchain.TagDirectory:
			child, ok := idx.NamespaceByID(toolchain.ObjectID(e.Ref))
			if !ok {
				r.addf("%s/%s: directory %s has no namespace", where, e.Name, e.Ref)
			} else if child.Parent != ns.ID {
				r.addf("%s/%s: parent is %s, want %s", where, e.Name, child.Parent, ns.ID)
			}
		case toolchain.TagFile:
			need(where+"/"+e.Name, toolchain.ObjectID(e.Ref))
		}
	}
}

func verifyArchive(r *Report, opts Options, idx *Index) {
	archive := opts.ArchivePath()
	info, err := os.Stat(archive)
	if err != nil {
		r.addf("archive: %v", err)
		return
	}
	r.ArchiveBytes = info.Size()
	digest, err := ArchiveDigest(archive)
	if err != nil {
		r.addf("archive: %v", err)
		return
	}
	r.Digest = digest
	recorded, err := ReadDigestFile(archive + DigestSuffix)
	if err != nil {
		r.addf("archive digest: %v", err)
	} else if recorded != digest {
		r.addf("archive digest is %s, recorded %s", digest, recorded)
	}

	members, err := ArchiveMembers(archive)
	if err != nil {
		r.addf("archive: %v", err)
		return
	}
	r.Members = len(members)
	want := make([]string, 0, len(idx.Objects)+1)
	for _, id := range idx.Objects {
		want = append(want, string(id))
	}
	want = append(want, opts.ManifestName)
	slices.Sort(want)
	for _, name := range members {
		if objstore.IsScratch(name) {
			r.addf("archive holds scratch member %s", name)
		}
	}
	if !slices.Equal(members, want) {
		r.addf("archive members %v, want %v", members, want)
	}
}
