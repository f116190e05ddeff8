package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dendrascience/rootimg/objstore"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/dendrascience/rootimg/tree"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Compiler materializes files and serializes namespaces into one store. A Compiler
// accumulates what it has built; use one per build.
type Compiler struct {
	tools      toolchain.Tools
	store      *objstore.Store
	logger     *log.Logger
	jobs       int
	sem        *semaphore.Weighted
	payloadDir string

	mu         sync.Mutex
	files      map[string]toolchain.ObjectID
	namespaces []Namespace
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithJobs bounds the number of concurrent tool invocations. Values below one are
// ignored.
func WithJobs(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.jobs = n
		}
	}
}

// WithPayloadDir sets where serialized namespace payloads are written. They are kept
// after the build for diagnosis.
func WithPayloadDir(dir string) Option {
	return func(c *Compiler) { c.payloadDir = dir }
}

// New returns a Compiler that drives tools and fills store.
func New(tools toolchain.Tools, store *objstore.Store, opts ...Option) *Compiler {
	c := &Compiler{
		tools: tools,
		store: store,
		jobs:  runtime.NumCPU(),
		files: make(map[string]toolchain.ObjectID),
	}
	for _, apply := range opts {
		apply(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.payloadDir == "" {
		c.payloadDir = filepath.Join(store.Root(), objstore.ScratchPrefix+"namespace_output")
	}
	c.sem = semaphore.NewWeighted(int64(c.jobs))
	return c
}

// Compile serializes the whole tree rooted at root and returns what was built.
func (c *Compiler) Compile(ctx context.Context, root *tree.Node) (*Result, error) {
	if err := os.MkdirAll(c.payloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating payload directory: %w", err)
	}
	id, err := c.Serialize(ctx, root, "")
	if err != nil {
		return nil, err
	}
	res := c.result(id)
	c.logger.Info("compiled tree",
		"namespaces", len(res.Namespaces),
		"files", len(res.Files),
		"objects", c.store.Len(),
		"root", id)
	return res, nil
}

// Materialize encodes the file at src with perm and stores it, returning its
// ObjectID. flat and rel name the staged container (see objstore.Store.StagingPath).
// Materializing byte-identical input twice returns the same id and stores one object.
func (c *Compiler) Materialize(ctx context.Context, src, flat, rel string, perm toolchain.Perm) (toolchain.ObjectID, error) {
	id, staged, err := c.encode(ctx, objstore.KindObject, src, flat, rel, perm)
	if err != nil {
		return "", err
	}
	dedup, err := c.store.Commit(id, staged)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", rel, err)
	}
	c.logger.Debug("materialized", "path", rel, "id", id, "dedup", dedup)
	return id, nil
}

// Serialize compiles node and everything below it and returns the node's reserved
// ObjectID. parent is the enclosing namespace's id; pass "" for the root, whose ".."
// then refers to itself.
func (c *Compiler) Serialize(ctx context.Context, node *tree.Node, parent toolchain.ObjectID) (toolchain.ObjectID, error) {
	if err := checkEntries(node); err != nil {
		return "", err
	}

	self, placeholder, err := c.reserve(ctx, node)
	if err != nil {
		return "", err
	}
	if parent == "" {
		parent = self
	}

	lines := make([]toolchain.Line, len(node.Entries)+2)
	lines[0] = toolchain.Line{Tag: toolchain.TagNamespace, Ref: string(self), Name: "."}
	lines[1] = toolchain.Line{Tag: toolchain.TagNamespace, Ref: string(parent), Name: ".."}

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range node.Entries {
		slot := &lines[i+2]
		switch e.Kind {
		case tree.Symlink:
			*slot = toolchain.Line{Tag: toolchain.TagSymlink, Ref: e.Target, Name: e.Name}
		case tree.Directory:
			g.Go(func() error {
				id, err := c.Serialize(gctx, e.Child, self)
				if err != nil {
					return err
				}
				*slot = toolchain.Line{Tag: toolchain.TagDirectory, Ref: string(id), Name: e.Name}
				return nil
			})
		case tree.File:
			g.Go(func() error {
				rel := node.EntryPath(e)
				id, err := c.Materialize(gctx, e.Source, node.Name+"_"+e.Name, rel, toolchain.PermReadExecHash)
				if err != nil {
					return err
				}
				c.recordFile(rel, id)
				*slot = toolchain.Line{Tag: toolchain.TagFile, Ref: string(id), Name: e.Name}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := c.attach(ctx, node, self, placeholder, lines); err != nil {
		return "", err
	}
	c.recordNamespace(Namespace{
		Path:   node.Path,
		Name:   node.Name,
		ID:     self,
		Parent: parent,
		Lines:  lines,
	})
	c.logger.Debug("serialized namespace", "path", "/"+node.Path, "id", self, "entries", len(node.Entries))
	return self, nil
}

// reserve encodes an empty placeholder for node and registers it under its fresh id.
func (c *Compiler) reserve(ctx context.Context, node *tree.Node) (toolchain.ObjectID, string, error) {
	id, staged, err := c.encode(ctx, objstore.KindNamespace, "", node.Name, "/"+node.Path, toolchain.PermReadExecWrite)
	if err != nil {
		return "", "", err
	}
	if err := c.store.Reserve(id, staged); err != nil {
		if errors.Is(err, objstore.ErrReservationConflict) {
			return "", "", &toolchain.IdentityError{Container: staged, Output: string(id), Err: err}
		}
		return "", "", fmt.Errorf("reserving namespace %s: %w", node.Name, err)
	}
	return id, staged, nil
}

// attach serializes lines and appends the payload to the reserved placeholder. The
// oracle is consulted again afterwards; the namespace keeps its reserved id whatever
// it says.
func (c *Compiler) attach(ctx context.Context, node *tree.Node, self toolchain.ObjectID, placeholder string, lines []toolchain.Line) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	payload := filepath.Join(c.payloadDir, filepath.Base(placeholder))
	if err := c.tools.EncodeHierarchy(ctx, lines, payload); err != nil {
		return &toolchain.SerializeError{Namespace: node.Name, Stage: toolchain.StageHierarchy, Err: err}
	}
	f, err := os.Open(payload)
	if err != nil {
		return &toolchain.SerializeError{Namespace: node.Name, Stage: toolchain.StageHierarchy, Err: err}
	}
	err = c.tools.Append(ctx, placeholder, f)
	f.Close()
	if err != nil {
		return &toolchain.SerializeError{Namespace: node.Name, Stage: toolchain.StageAppend, Err: err}
	}

	effective, err := c.tools.Identify(ctx, placeholder)
	if err != nil {
		return identityError(err, placeholder)
	}
	if effective != self {
		c.logger.Debug("namespace identity drifted after append", "namespace", node.Name, "reserved", self, "effective", effective)
	}
	return nil
}

// encode stages src as a container and asks the oracle for its id.
func (c *Compiler) encode(ctx context.Context, kind, src, flat, rel string, perm toolchain.Perm) (toolchain.ObjectID, string, error) {
	staged, err := c.store.StagingPath(kind, flat, rel)
	if err != nil {
		return "", "", err
	}
	// a previous materialization of rel leaves a link to a stored object here
	if err := os.Remove(staged); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("clearing staged %s: %w", staged, err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", "", err
	}
	defer c.sem.Release(1)

	if err := c.tools.Encode(ctx, src, staged, perm); err != nil {
		var ee *toolchain.EncodeError
		if !errors.As(err, &ee) {
			err = &toolchain.EncodeError{Source: src, Output: staged, Err: err}
		}
		return "", "", err
	}
	id, err := c.tools.Identify(ctx, staged)
	if err != nil {
		return "", "", identityError(err, staged)
	}
	return id, staged, nil
}

func identityError(err error, container string) error {
	var ie *toolchain.IdentityError
	if errors.As(err, &ie) {
		return err
	}
	return &toolchain.IdentityError{Container: container, Err: err}
}

// checkEntries rejects entries that cannot be written as hierarchy lines before any
// work is started for node.
func checkEntries(node *tree.Node) error {
	for _, e := range node.Entries {
		l := toolchain.Line{Tag: toolchain.TagFile, Ref: "0", Name: e.Name}
		if e.Kind == tree.Symlink {
			l = toolchain.Line{Tag: toolchain.TagSymlink, Ref: e.Target, Name: e.Name}
		}
		if err := l.Validate(); err != nil {
			return &toolchain.SerializeError{
				Namespace: node.Name,
				Stage:     toolchain.StageHierarchy,
				Err:       fmt.Errorf("entry %q: %w", node.EntryPath(e), err),
			}
		}
	}
	return nil
}

func (c *Compiler) recordFile(rel string, id toolchain.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[rel] = id
}

func (c *Compiler) recordNamespace(ns Namespace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces = append(c.namespaces, ns)
}

func (c *Compiler) result(root toolchain.ObjectID) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := &Result{
		Root:       root,
		Namespaces: slices.Clone(c.namespaces),
		Files:      make(map[string]toolchain.ObjectID, len(c.files)),
	}
	for k, v := range c.files {
		res.Files[k] = v
	}
	slices.SortFunc(res.Namespaces, func(a, b Namespace) int {
		return strings.Compare(a.Path, b.Path)
	})
	return res
}
