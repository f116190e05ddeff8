package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script writes an executable /bin/sh script into dir and returns its path.
func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func shellTools(t *testing.T) (*Exec, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	x := &Exec{
		// file2obj -i SRC -o DST -p PERM: header line then the source bytes
		EncoderPath: script(t, dir, "file2obj", `echo "obj $6" > "$4" && cat "$2" >> "$4"`),
		// objstat -i CONTAINER
		IdentityPath:  script(t, dir, "objstat", `echo "0000000000000001:0000000000000002"`),
		HierarchyPath: script(t, dir, "hier", `echo "hier"; cat`),
		AppendPath:    script(t, dir, "appendobj", `cat >> "$1"`),
	}
	return x, dir
}

func TestExecRoundTrip(t *testing.T) {
	x, dir := shellTools(t)
	ctx := context.Background()

	src := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))
	obj := filepath.Join(dir, "obj")

	require.NoError(t, x.Encode(ctx, src, obj, PermReadExecHash))
	data, err := os.ReadFile(obj)
	require.NoError(t, err)
	assert.Equal(t, "obj RXH\nhi", string(data))

	id, err := x.Identify(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, ObjectID("0000000000000001:0000000000000002"), id)

	payload := filepath.Join(dir, "payload")
	lines := []Line{{Tag: TagNamespace, Ref: string(id), Name: "."}}
	require.NoError(t, x.EncodeHierarchy(ctx, lines, payload))
	data, err = os.ReadFile(payload)
	require.NoError(t, err)
	assert.Equal(t, "hier\nn 0000000000000001:0000000000000002 .", string(data))

	f, err := os.Open(payload)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, x.Append(ctx, obj, f))
	data, err = os.ReadFile(obj)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "n 0000000000000001:0000000000000002 ."))
}

func TestExecEncodeEmptyInput(t *testing.T) {
	x, dir := shellTools(t)
	obj := filepath.Join(dir, "placeholder")

	require.NoError(t, x.Encode(context.Background(), "", obj, PermReadExecWrite))
	data, err := os.ReadFile(obj)
	require.NoError(t, err)
	assert.Equal(t, "obj RXW\n", string(data))
}

func TestExecFailures(t *testing.T) {
	x, dir := shellTools(t)
	ctx := context.Background()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	t.Run("encoder exits non-zero", func(t *testing.T) {
		bad := *x
		bad.EncoderPath = script(t, dir, "enc-fail", `echo "bad perm" >&2; exit 3`)
		err := bad.Encode(ctx, src, filepath.Join(dir, "o1"), PermReadExecHash)
		var ee *EncodeError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, src, ee.Source)
		assert.Contains(t, err.Error(), "bad perm")
	})

	t.Run("encoder succeeds without output", func(t *testing.T) {
		bad := *x
		bad.EncoderPath = script(t, dir, "enc-noop", `exit 0`)
		err := bad.Encode(ctx, src, filepath.Join(dir, "o2"), PermReadExecHash)
		assert.ErrorIs(t, err, ErrNoContainer)
	})

	t.Run("encoder missing", func(t *testing.T) {
		bad := *x
		bad.EncoderPath = filepath.Join(dir, "does-not-exist")
		err := bad.Encode(ctx, src, filepath.Join(dir, "o3"), PermReadExecHash)
		var ee *EncodeError
		assert.True(t, errors.As(err, &ee))
	})

	t.Run("oracle prints nothing", func(t *testing.T) {
		bad := *x
		bad.IdentityPath = script(t, dir, "stat-empty", `exit 0`)
		_, err := bad.Identify(ctx, src)
		var ie *IdentityError
		require.True(t, errors.As(err, &ie))
		assert.ErrorIs(t, err, ErrEmptyObjectID)
	})

	t.Run("oracle prints garbage", func(t *testing.T) {
		bad := *x
		bad.IdentityPath = script(t, dir, "stat-garbage", `echo "no object here"`)
		_, err := bad.Identify(ctx, src)
		var ie *IdentityError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "no object here", ie.Output)
		assert.ErrorIs(t, err, ErrMalformedObjectID)
	})

	t.Run("oracle exits non-zero", func(t *testing.T) {
		bad := *x
		bad.IdentityPath = script(t, dir, "stat-fail", `exit 1`)
		_, err := bad.Identify(ctx, src)
		var ie *IdentityError
		assert.True(t, errors.As(err, &ie))
	})

	t.Run("hierarchy encoder exits non-zero", func(t *testing.T) {
		bad := *x
		bad.HierarchyPath = script(t, dir, "hier-fail", `exit 2`)
		err := bad.EncodeHierarchy(ctx, nil, filepath.Join(dir, "p"))
		assert.Error(t, err)
	})

	t.Run("appender exits non-zero", func(t *testing.T) {
		bad := *x
		bad.AppendPath = script(t, dir, "append-fail", `exit 2`)
		err := bad.Append(ctx, src, strings.NewReader("payload"))
		assert.Error(t, err)
	})
}
