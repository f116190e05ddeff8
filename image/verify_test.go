package image

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dendrascience/rootimg/toolchain/tooltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDetects(t *testing.T) {
	tests := []struct {
		name   string
		damage func(t *testing.T, img *Image)
		want   string
	}{
		{
			name: "tampered archive",
			damage: func(t *testing.T, img *Image) {
				f, err := os.OpenFile(img.ArchivePath, os.O_APPEND|os.O_WRONLY, 0)
				require.NoError(t, err)
				_, err = f.Write([]byte("junk"))
				require.NoError(t, err)
				require.NoError(t, f.Close())
			},
			want: "archive digest",
		},
		{
			name: "missing object",
			damage: func(t *testing.T, img *Image) {
				require.NoError(t, os.Remove(filepath.Join(img.ObjectDir, string(img.Manifest.Init))))
			},
			want: "not in the store",
		},
		{
			name: "manifest disagrees",
			damage: func(t *testing.T, img *Image) {
				require.NoError(t, WriteManifest(img.ManifestPath, Manifest{Name: img.Manifest.Init, Init: img.Manifest.Init}))
			},
			want: "manifest name=",
		},
		{
			name: "missing manifest",
			damage: func(t *testing.T, img *Image) {
				require.NoError(t, os.Remove(img.ManifestPath))
			},
			want: "manifest:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, opts, err := build(t, exampleTree(t), &tooltest.Tools{})
			require.NoError(t, err)
			tt.damage(t, img)

			report, err := Verify(opts.BuildDir, Options{})
			require.NoError(t, err)
			require.False(t, report.OK())
			assert.True(t, containsProblem(report, tt.want), "problems: %v", report.Problems)
		})
	}
}

func TestVerifyWithoutIndex(t *testing.T) {
	_, err := Verify(t.TempDir(), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func containsProblem(r *Report, substr string) bool {
	for _, p := range r.Problems {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}
