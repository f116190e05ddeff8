package image

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArchiveExcludesScratch(t *testing.T) {
	store := t.TempDir()
	for name, content := range map[string]string{
		"bb":         "second",
		"aa":         "first",
		"kc":         "name=aa\ninit=bb\n",
		"__obj_x-01": "staged",
		"__run-1234": "",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(store, name), []byte(content), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(store, "cc"), 0o755))

	dst := filepath.Join(t.TempDir(), "ramdisk.tar")
	stats, err := WriteArchive(store, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Members)
	assert.Equal(t, int64(len("second")+len("first")+len("name=aa\ninit=bb\n")), stats.Bytes)

	members, err := ArchiveMembers(dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb", "kc"}, members)

	digest, err := ArchiveDigest(dst)
	require.NoError(t, err)
	assert.Equal(t, stats.Digest, digest)
	recorded, err := ReadDigestFile(dst + DigestSuffix)
	require.NoError(t, err)
	assert.Equal(t, digest, recorded)
}

func TestWriteArchiveIsReproducible(t *testing.T) {
	store := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(store, "aa"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store, "kc"), []byte("y"), 0o600))

	first, err := WriteArchive(store, filepath.Join(t.TempDir(), "a.tar"))
	require.NoError(t, err)

	// Different permissions and timestamps on disk must not show in the archive.
	require.NoError(t, os.Chmod(filepath.Join(store, "aa"), 0o755))
	old := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(store, "kc"), old, old))
	second, err := WriteArchive(store, filepath.Join(t.TempDir(), "b.tar"))
	require.NoError(t, err)
	assert.Equal(t, first.Digest, second.Digest)
}
