package toolchain

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Default tool names, resolved through PATH when not configured.
const (
	DefaultEncoder   = "file2obj"
	DefaultIdentity  = "objstat"
	DefaultHierarchy = "hier"
	DefaultAppend    = "appendobj"
)

// emptyInput is what the encoder reads when asked for an empty object.
const emptyInput = "/dev/null"

// Exec runs the kernel's object tools as subprocesses:
//
//	file2obj -i SRC -o DST -p PERM
//	objstat -i CONTAINER            (prints the ObjectID)
//	hier < LINES > PAYLOAD
//	appendobj CONTAINER < PAYLOAD
type Exec struct {
	EncoderPath   string
	IdentityPath  string
	HierarchyPath string
	AppendPath    string
}

var _ Tools = (*Exec)(nil)

// NewExec returns an Exec using the default tool names.
func NewExec() *Exec {
	return &Exec{
		EncoderPath:   DefaultEncoder,
		IdentityPath:  DefaultIdentity,
		HierarchyPath: DefaultHierarchy,
		AppendPath:    DefaultAppend,
	}
}

// Encode implements Encoder.
func (x *Exec) Encode(ctx context.Context, src, dst string, perm Perm) error {
	in := src
	if in == "" {
		in = emptyInput
	}
	cmd := exec.CommandContext(ctx, x.EncoderPath, "-i", in, "-o", dst, "-p", string(perm))
	if err := run(cmd, x.EncoderPath); err != nil {
		return &EncodeError{Source: src, Output: dst, Err: err}
	}
	info, err := os.Stat(dst)
	if err != nil || !info.Mode().IsRegular() {
		return &EncodeError{Source: src, Output: dst, Err: ErrNoContainer}
	}
	return nil
}

// Identify implements Oracle.
func (x *Exec) Identify(ctx context.Context, path string) (ObjectID, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, x.IdentityPath, "-i", path)
	cmd.Stdout = &out
	if err := run(cmd, x.IdentityPath); err != nil {
		return "", &IdentityError{Container: path, Err: err}
	}
	raw := strings.TrimSpace(out.String())
	id, err := ParseObjectID(raw)
	if err != nil {
		return "", &IdentityError{Container: path, Output: raw, Err: err}
	}
	return id, nil
}

// EncodeHierarchy implements HierarchyEncoder.
func (x *Exec) EncodeHierarchy(ctx context.Context, lines []Line, dst string) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	cmd := exec.CommandContext(ctx, x.HierarchyPath)
	cmd.Stdin = bytes.NewReader(FormatLines(lines))
	cmd.Stdout = f
	return run(cmd, x.HierarchyPath)
}

// Append implements Appender.
func (x *Exec) Append(ctx context.Context, path string, payload io.Reader) error {
	cmd := exec.CommandContext(ctx, x.AppendPath, path)
	cmd.Stdin = payload
	return run(cmd, x.AppendPath)
}

// run executes cmd and turns a failure into a toolFailure carrying the tool's stderr.
func run(cmd *exec.Cmd, tool string) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &toolFailure{tool: tool, err: err, stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}
