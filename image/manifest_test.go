package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kc")
	m := Manifest{Name: "0011223344556677:8899aabbccddeeff", Init: "ffeeddccbbaa9988:7766554433221100"}
	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name=0011223344556677:8899aabbccddeeff\ninit=ffeeddccbbaa9988:7766554433221100\n", string(data))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing init", "name=00ff\n"},
		{"missing name", "init=00ff\n"},
		{"unknown key", "name=00ff\ninit=11ee\nboot=22dd\n"},
		{"no separator", "name 00ff\ninit=11ee\n"},
		{"bad id", "name=zz\ninit=11ee\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Manifest
			err := m.UnmarshalText([]byte(tt.data))
			assert.ErrorIs(t, err, ErrBadManifest)
		})
	}
}

func TestWriteManifestRequiresBothKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kc")
	err := WriteManifest(path, Manifest{Name: "00ff"})
	require.ErrorIs(t, err, ErrBadManifest)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
