package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dendrascience/rootimg/compiler"
	"github.com/dendrascience/rootimg/objstore"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/dendrascience/rootimg/tree"
	"github.com/dustin/go-humanize"
)

// Build directory layout and defaults.
const (
	ObjectDir           = "object_output"
	NamespaceDir        = "namespace_output"
	IndexName           = "index.cbor"
	DefaultArchiveName  = "ramdisk.tar"
	DefaultManifestName = "kc"
	DefaultInitPath     = "usr/bin/init_bootstrap"
)

// Options configures Build and Package. Zero values take the defaults above.
type Options struct {
	Source       string
	BuildDir     string
	InitPath     string
	ArchiveName  string
	ManifestName string
	Jobs         int
	Tools        toolchain.Tools
	Logger       *log.Logger
	RunID        string
}

func (o *Options) setDefaults() {
	if o.BuildDir == "" {
		o.BuildDir = "build"
	}
	if o.InitPath == "" {
		o.InitPath = DefaultInitPath
	}
	if o.ArchiveName == "" {
		o.ArchiveName = DefaultArchiveName
	}
	if o.ManifestName == "" {
		o.ManifestName = DefaultManifestName
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ArchivePath returns where the archive is written.
func (o Options) ArchivePath() string { return filepath.Join(o.BuildDir, o.ArchiveName) }

// IndexPath returns where the build index is written.
func (o Options) IndexPath() string { return filepath.Join(o.BuildDir, IndexName) }

// ObjectPath returns the object store directory.
func (o Options) ObjectPath() string { return filepath.Join(o.BuildDir, ObjectDir) }

// artifactPaths lists every file a build publishes. None of them may outlive a
// failed build.
func (o Options) artifactPaths() []string {
	return []string{
		filepath.Join(o.ObjectPath(), o.ManifestName),
		o.ArchivePath(),
		o.ArchivePath() + DigestSuffix,
		o.IndexPath(),
	}
}

func removeArtifacts(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing stale %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Image describes the artifacts of a finished build.
type Image struct {
	Manifest     Manifest
	Index        *Index
	Archive      ArchiveStats
	ArchivePath  string
	DigestPath   string
	IndexPath    string
	ManifestPath string
	ObjectDir    string
}

// CheckInitPath reports whether p names a file inside the source tree.
func CheckInitPath(p string) error {
	if p == "" || path.IsAbs(p) || filepath.IsAbs(p) {
		return fmt.Errorf("%w: %q", ErrUnsafeInitPath, p)
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrUnsafeInitPath, p)
	}
	return nil
}

// Build scans opts.Source, compiles it into a fresh object store under opts.BuildDir
// and packages the result.
func Build(ctx context.Context, opts Options) (*Image, error) {
	opts.setDefaults()
	if opts.Tools == nil {
		return nil, errors.New("no toolchain configured")
	}
	if err := CheckInitPath(opts.InitPath); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(opts.Source); err == nil {
		opts.Source = abs
	}
	if PathsOverlap(opts.Source, opts.BuildDir) {
		return nil, fmt.Errorf("%w: %s and %s", ErrBuildInSource, opts.BuildDir, opts.Source)
	}
	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}
	// Artifacts of an earlier build must not outlive a failure of this one.
	if err := removeArtifacts(opts.artifactPaths()...); err != nil {
		return nil, err
	}

	root, err := tree.Scan(opts.Source)
	if err != nil {
		return nil, err
	}
	counts := root.Counts()
	opts.Logger.Info("scanned source tree",
		"source", opts.Source,
		"namespaces", counts.Namespaces,
		"files", counts.Files,
		"symlinks", counts.Symlinks,
		"size", humanize.Bytes(uint64(counts.Bytes)))

	storeOpts := []objstore.Option{objstore.WithLogger(opts.Logger)}
	if opts.RunID != "" {
		storeOpts = append(storeOpts, objstore.WithRunID(opts.RunID))
	}
	store, err := objstore.Open(opts.ObjectPath(), storeOpts...)
	if err != nil {
		return nil, err
	}
	payloads := filepath.Join(opts.BuildDir, NamespaceDir)
	if err := os.RemoveAll(payloads); err != nil {
		return nil, fmt.Errorf("clearing namespace output: %w", err)
	}
	c := compiler.New(opts.Tools, store,
		compiler.WithLogger(opts.Logger),
		compiler.WithJobs(opts.Jobs),
		compiler.WithPayloadDir(payloads))
	res, err := c.Compile(ctx, root)
	if err != nil {
		return nil, err
	}
	return Package(res, store, opts)
}

// Package writes the manifest, archive and index for a compiled tree. It fails with a
// *MissingObjectError, before writing anything, if the init program is not part of
// the result.
func Package(res *compiler.Result, store *objstore.Store, opts Options) (*Image, error) {
	opts.setDefaults()
	initPath := path.Clean(filepath.ToSlash(opts.InitPath))
	initID, ok := res.File(initPath)
	if !ok {
		return nil, &MissingObjectError{Path: initPath}
	}
	if !store.Has(initID) || !store.Has(res.Root) {
		return nil, fmt.Errorf("%w: manifest objects missing from store", objstore.ErrUnknownObject)
	}

	m := Manifest{Name: res.Root, Init: initID}
	img := &Image{
		Manifest:     m,
		ArchivePath:  opts.ArchivePath(),
		DigestPath:   opts.ArchivePath() + DigestSuffix,
		IndexPath:    opts.IndexPath(),
		ManifestPath: filepath.Join(store.Root(), opts.ManifestName),
		ObjectDir:    store.Root(),
	}
	if err := WriteManifest(img.ManifestPath, m); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	packaged := false
	defer func() {
		if packaged {
			return
		}
		if err := removeArtifacts(img.ManifestPath, img.ArchivePath, img.DigestPath); err != nil {
			opts.Logger.Warn("leftover artifacts", "err", err)
		}
	}()
	opts.Logger.Info("wrote manifest", "path", img.ManifestPath, "name", m.Name, "init", m.Init)

	stats, err := WriteArchive(store.Root(), img.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	img.Archive = stats
	opts.Logger.Info("wrote archive",
		"path", img.ArchivePath,
		"members", stats.Members,
		"size", humanize.Bytes(uint64(stats.Bytes)),
		"blake3", stats.Digest)

	idx := NewIndex(res, store.Objects())
	idx.BuildID = store.RunID()
	idx.Source = opts.Source
	idx.Init = initID
	idx.InitPath = initPath
	img.Index = idx
	if err := WriteIndex(img.IndexPath, idx); err != nil {
		return nil, err
	}
	packaged = true
	return img, nil
}
