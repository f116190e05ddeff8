package objstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dendrascience/rootimg/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, s *Store, kind, flat, rel, content string) string {
	t.Helper()
	p, err := s.StagingPath(kind, flat, rel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func sameFile(t *testing.T, a, b string) bool {
	t.Helper()
	ia, err := os.Stat(a)
	require.NoError(t, err)
	ib, err := os.Stat(b)
	require.NoError(t, err)
	return os.SameFile(ia, ib)
}

func TestOpenClearsStaleObjects(t *testing.T) {
	root := filepath.Join(t.TempDir(), "object_output")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "__run-old", "001"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "aa:bb"), []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "__run-old", "001", "__obj_x"), []byte("stale"), 0o644))

	s, err := Open(root, WithRunID("fixed"))
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "__run-fixed", entries[0].Name())
	assert.Equal(t, "fixed", s.RunID())
	assert.Equal(t, 0, s.Len())
}

func TestStagingPath(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	a, err := s.StagingPath(KindObject, "root_a_b_c", "a_b/c")
	require.NoError(t, err)
	b, err := s.StagingPath(KindObject, "root_a_b_c", "a/b_c")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "colliding flattened names must stage separately")
	assert.True(t, strings.HasPrefix(filepath.Base(a), "__obj_root_a_b_c-"))
	assert.True(t, IsScratch(filepath.Base(filepath.Dir(filepath.Dir(a)))))

	again, err := s.StagingPath(KindObject, "root_a_b_c", "a_b/c")
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestCommitDeduplicates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	id := toolchain.ObjectID("00000000000000aa:00000000000000bb")

	first := stage(t, s, KindObject, "root_a.txt", "a.txt", "same")
	second := stage(t, s, KindObject, "root_b.txt", "b.txt", "same")

	dedup, err := s.Commit(id, first)
	require.NoError(t, err)
	assert.False(t, dedup)

	dedup, err = s.Commit(id, second)
	require.NoError(t, err)
	assert.True(t, dedup)

	final, err := s.Path(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), string(id)), final)
	assert.True(t, sameFile(t, final, first))
	assert.True(t, sameFile(t, final, second))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.Refs(id))
	assert.Equal(t, []toolchain.ObjectID{id}, s.Objects())
}

func TestCommitConcurrentSameID(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	id := toolchain.ObjectID("0123:4567")

	const n = 32
	paths := make([]string, n)
	for i := range paths {
		paths[i] = stage(t, s, KindObject, fmt.Sprintf("root_f%d", i), fmt.Sprintf("f%d", i), "dup")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for _, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dedup, err := s.Commit(id, p)
			assert.NoError(t, err)
			if !dedup {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, n, s.Refs(id))
	final, err := s.Path(id)
	require.NoError(t, err)
	for _, p := range paths {
		assert.True(t, sameFile(t, final, p))
	}
}

func TestReserve(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	id := toolchain.ObjectID("aaaa:0001")

	placeholder := stage(t, s, KindNamespace, "root", "", "")
	require.NoError(t, s.Reserve(id, placeholder))
	assert.True(t, s.Has(id))

	// mutation of the staged placeholder is visible under the reserved id
	f, err := os.OpenFile(placeholder, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.WriteString("payload")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	final, err := s.Path(id)
	require.NoError(t, err)
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	other := stage(t, s, KindNamespace, "root_etc", "etc", "")
	assert.ErrorIs(t, s.Reserve(id, other), ErrReservationConflict)
}

func TestRejectsUnsafeIDs(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	p := stage(t, s, KindObject, "root_x", "x", "x")

	_, err = s.Commit("../escape", p)
	assert.ErrorIs(t, err, toolchain.ErrMalformedObjectID)
	_, err = s.Path("ffff:0000")
	assert.ErrorIs(t, err, ErrUnknownObject)
	assert.Equal(t, 0, s.Refs("ffff:0000"))
}
