package objstore

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/google/uuid"
	"github.com/taigrr/colorhash"
	"github.com/zeebo/blake3"
)

// ScratchPrefix marks names that are never part of a delivered image.
const ScratchPrefix = "__"

// Buckets is the number of staging shard directories per run.
const Buckets = 256

// Staging kinds.
const (
	KindObject    = "obj"
	KindNamespace = "nobj"
)

// IsScratch reports whether name follows the scratch naming convention.
func IsScratch(name string) bool {
	return strings.HasPrefix(name, ScratchPrefix)
}

// Store is the object output directory of one build. It is safe for concurrent use.
type Store struct {
	root   string
	runID  string
	run    string
	logger *log.Logger

	mu      sync.Mutex
	objects map[toolchain.ObjectID]*object
}

type object struct {
	path string
	refs int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for per-object debug output.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRunID fixes the run identifier instead of generating a random one.
func WithRunID(id string) Option {
	return func(s *Store) { s.runID = id }
}

// Open prepares root as an empty object store. Anything already in root, including
// scratch left by an earlier failed run, is removed first so it cannot leak into this
// build.
func Open(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:    root,
		objects: make(map[toolchain.ObjectID]*object),
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating object store %s: %w", root, err)
	}
	stale, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading object store %s: %w", root, err)
	}
	for _, d := range stale {
		if err := os.RemoveAll(filepath.Join(root, d.Name())); err != nil {
			return nil, fmt.Errorf("clearing stale object %s: %w", d.Name(), err)
		}
	}
	if len(stale) > 0 {
		s.logger.Debug("cleared stale objects", "store", root, "count", len(stale))
	}
	s.run = filepath.Join(root, ScratchPrefix+"run-"+s.runID)
	if err := os.Mkdir(s.run, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return s, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// RunID returns the identifier of this build's staging run.
func (s *Store) RunID() string { return s.runID }

// StagingPath returns a fresh scratch path for a container of the given kind. flat is
// the readable flattened name ("root_usr_bin_init_bootstrap"); rel is the entry's path
// relative to the source root and disambiguates flattened names that collide.
func (s *Store) StagingPath(kind, flat, rel string) (string, error) {
	bucket := fmt.Sprintf("%03d", colorhash.HashString(rel)%Buckets)
	dir := filepath.Join(s.run, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging bucket %s: %w", dir, err)
	}
	sum := blake3.Sum256([]byte(rel))
	name := ScratchPrefix + kind + "_" + flat + "-" + hex.EncodeToString(sum[:4])
	return filepath.Join(dir, name), nil
}

// Reserve registers the staged container as the object for a freshly reserved id. The
// caller goes on to mutate the container in place, so the id must not already be in
// use by any other object.
func (s *Store) Reserve(id toolchain.ObjectID, staged string) error {
	if err := checkName(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; ok {
		return fmt.Errorf("%w: %s", ErrReservationConflict, id)
	}
	return s.insert(id, staged)
}

// Commit stores the staged container under id. If the store already holds id, the
// staged copy is discarded and replaced by a link to the existing object and dedup is
// true. Either way the store ends with exactly one physical object for id.
func (s *Store) Commit(id toolchain.ObjectID, staged string) (dedup bool, err error) {
	if err := checkName(id); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[id]; ok {
		if err := os.Remove(staged); err != nil {
			return false, fmt.Errorf("discarding duplicate %s: %w", staged, err)
		}
		if err := os.Link(obj.path, staged); err != nil {
			return false, fmt.Errorf("linking duplicate %s: %w", staged, err)
		}
		obj.refs++
		s.logger.Debug("dedup", "id", id, "staged", filepath.Base(staged), "refs", obj.refs)
		return true, nil
	}
	return false, s.insert(id, staged)
}

// insert links staged into the store as id. Callers hold s.mu.
func (s *Store) insert(id toolchain.ObjectID, staged string) error {
	final := filepath.Join(s.root, string(id))
	if err := os.Link(staged, final); err != nil {
		return fmt.Errorf("linking %s as %s: %w", staged, id, err)
	}
	s.objects[id] = &object{path: final, refs: 1}
	s.logger.Debug("stored", "id", id, "staged", filepath.Base(staged))
	return nil
}

// Has reports whether id is in the store.
func (s *Store) Has(id toolchain.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// Path returns the on-disk path of object id.
func (s *Store) Path(id toolchain.ObjectID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	return obj.path, nil
}

// Refs returns how many logical references share object id.
func (s *Store) Refs(id toolchain.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[id]; ok {
		return obj.refs
	}
	return 0
}

// Objects returns the ids of every retained object, sorted.
func (s *Store) Objects() []toolchain.ObjectID {
	s.mu.Lock()
	ids := make([]toolchain.ObjectID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of retained objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func checkName(id toolchain.ObjectID) error {
	if IsScratch(string(id)) {
		return fmt.Errorf("%w: %s", ErrScratchName, id)
	}
	if _, err := toolchain.ParseObjectID(string(id)); err != nil {
		return err
	}
	return nil
}
