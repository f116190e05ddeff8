package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dendrascience/rootimg/image"
	"github.com/dendrascience/rootimg/toolchain/tooltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seededBuild seeds a tree and builds it with the in-process toolchain.
func seededBuild(t *testing.T) (string, *image.Image) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src")
	_, err := execute(t, "seed", "--output", src, "--count", "60", "--symlinks", "3")
	require.NoError(t, err)

	buildDir := filepath.Join(t.TempDir(), "build")
	img, err := image.Build(context.Background(), image.Options{
		Source:   src,
		BuildDir: buildDir,
		Tools:    &tooltest.Tools{},
	})
	require.NoError(t, err)
	return buildDir, img
}

func TestSeedAndScan(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	_, err := execute(t, "seed", "--output", src, "--count", "60", "--symlinks", "3")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(src, "usr", "bin", "init_bootstrap"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	out, err := execute(t, "scan", src)
	require.NoError(t, err)
	assert.Contains(t, out, "files:      61")
	assert.Contains(t, out, "symlinks:   3")

	out, err = execute(t, "scan", "--tree", src)
	require.NoError(t, err)
	assert.Contains(t, out, "init_bootstrap")
	assert.Contains(t, out, "link-000 -> ")
}

func TestSeedRejectsNegativeCounts(t *testing.T) {
	_, err := execute(t, "seed", "--output", t.TempDir(), "--count", "-1")
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	buildDir, img := seededBuild(t)

	out, err := execute(t, "verify", buildDir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, img.Archive.Digest)

	require.NoError(t, os.Remove(img.ArchivePath))
	out, err = execute(t, "verify", "--build-dir", buildDir)
	assert.ErrorIs(t, err, image.ErrVerifyFailed)
	assert.Contains(t, out, "problem:")
}

func TestInspectCommand(t *testing.T) {
	buildDir, img := seededBuild(t)

	out, err := execute(t, "inspect", "--build-dir", buildDir)
	require.NoError(t, err)
	assert.Contains(t, out, "name="+string(img.Manifest.Name))
	assert.Contains(t, out, "init="+string(img.Manifest.Init))

	out, err = execute(t, "inspect", "--build-dir", buildDir, "usr/bin")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "d "))
	assert.True(t, strings.HasSuffix(lines[1], " ."))
	assert.True(t, strings.HasSuffix(lines[2], " .."))
	assert.Contains(t, out, "r "+string(img.Manifest.Init)+" init_bootstrap")

	out, err = execute(t, "inspect", "--build-dir", buildDir, "--format", "yaml")
	require.NoError(t, err)
	var summary indexSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &summary))
	assert.Equal(t, img.Manifest.Name, summary.Name)
	assert.Equal(t, len(img.Index.Objects), summary.Objects)

	_, err = execute(t, "inspect", "--build-dir", buildDir, "--format", "xml")
	assert.Error(t, err)
	_, err = execute(t, "inspect", "--build-dir", buildDir, "no/such/path")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildCommandReportsToolFailure(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "usr", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "usr", "bin", "init_bootstrap"), []byte("init"), 0o755))

	missing := filepath.Join(t.TempDir(), "no-such-tool")
	_, err := execute(t, "build", src,
		"--build-dir", filepath.Join(t.TempDir(), "build"),
		"--encoder", missing,
		"--identity", missing,
		"--hierarchy", missing,
		"--append", missing)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rootimg version")
}
