// Package tooltest provides an in-process implementation of the toolchain
// collaborators for tests.
//
// Containers written by Tools are small self-describing files:
//
//	ROOTIMG-OBJ1 <id> <perm> <content length>\n
//	<content>
//	<payload length>\n<payload>     (once per Append)
//
// Content-hashed permission profiles (H) get an ObjectID derived from the perm and
// content with BLAKE3. Other profiles get an ObjectID derived from the output file's
// base name, so a reservation is stable across runs and distinct per staging name.
package tooltest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dendrascience/rootimg/toolchain"
	"github.com/zeebo/blake3"
)

const (
	magic        = "ROOTIMG-OBJ1"
	payloadMagic = "HIER1\n"
)

var ErrBadContainer = errors.New("not a tooltest container")

// Tools is a deterministic fake of the kernel's object tools. The zero value is ready
// to use. Hooks, when set, run before the corresponding operation and fail it by
// returning an error.
type Tools struct {
	EncodeHook    func(src, dst string, perm toolchain.Perm) error
	IdentifyHook  func(path string) error
	HierarchyHook func(lines []toolchain.Line) error
	AppendHook    func(path string) error

	// Drift makes Identify report a content-derived id for containers that had a
	// payload appended, the way a content-hashing oracle would.
	Drift bool

	Encodes     atomic.Int64
	Identifies  atomic.Int64
	Hierarchies atomic.Int64
	Appends     atomic.Int64
}

var _ toolchain.Tools = (*Tools)(nil)

// Container is a decoded tooltest container.
type Container struct {
	ID       toolchain.ObjectID
	Perm     toolchain.Perm
	Content  []byte
	Payloads [][]byte
}

// Lines decodes the hierarchy lines of the last appended payload.
func (c *Container) Lines() ([]toolchain.Line, error) {
	if len(c.Payloads) == 0 {
		return nil, fmt.Errorf("%w: no payload", ErrBadContainer)
	}
	p := c.Payloads[len(c.Payloads)-1]
	if !bytes.HasPrefix(p, []byte(payloadMagic)) {
		return nil, fmt.Errorf("%w: payload is not a hierarchy", ErrBadContainer)
	}
	return toolchain.ParseLines(p[len(payloadMagic):])
}

// Encode implements toolchain.Encoder.
func (t *Tools) Encode(ctx context.Context, src, dst string, perm toolchain.Perm) error {
	t.Encodes.Add(1)
	if err := ctx.Err(); err != nil {
		return &toolchain.EncodeError{Source: src, Output: dst, Err: err}
	}
	if t.EncodeHook != nil {
		if err := t.EncodeHook(src, dst, perm); err != nil {
			return &toolchain.EncodeError{Source: src, Output: dst, Err: err}
		}
	}
	var content []byte
	if src != "" {
		var err error
		content, err = os.ReadFile(src)
		if err != nil {
			return &toolchain.EncodeError{Source: src, Output: dst, Err: err}
		}
	}
	var id toolchain.ObjectID
	if perm.Hashed() {
		id = HashID(string(perm), content)
	} else {
		id = HashID("reserve", []byte(filepath.Base(dst)))
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s %d\n", magic, id, perm, len(content))
	b.Write(content)
	if err := os.WriteFile(dst, b.Bytes(), 0o644); err != nil {
		return &toolchain.EncodeError{Source: src, Output: dst, Err: err}
	}
	return nil
}

// Identify implements toolchain.Oracle.
func (t *Tools) Identify(ctx context.Context, path string) (toolchain.ObjectID, error) {
	t.Identifies.Add(1)
	if err := ctx.Err(); err != nil {
		return "", &toolchain.IdentityError{Container: path, Err: err}
	}
	if t.IdentifyHook != nil {
		if err := t.IdentifyHook(path); err != nil {
			return "", &toolchain.IdentityError{Container: path, Err: err}
		}
	}
	c, err := ReadContainer(path)
	if err != nil {
		return "", &toolchain.IdentityError{Container: path, Err: err}
	}
	if t.Drift && len(c.Payloads) > 0 {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", &toolchain.IdentityError{Container: path, Err: err}
		}
		return HashID("drift", raw), nil
	}
	return c.ID, nil
}

// EncodeHierarchy implements toolchain.HierarchyEncoder.
func (t *Tools) EncodeHierarchy(ctx context.Context, lines []toolchain.Line, dst string) error {
	t.Hierarchies.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.HierarchyHook != nil {
		if err := t.HierarchyHook(lines); err != nil {
			return err
		}
	}
	payload := append([]byte(payloadMagic), toolchain.FormatLines(lines)...)
	return os.WriteFile(dst, payload, 0o644)
}

// Append implements toolchain.Appender.
func (t *Tools) Append(ctx context.Context, path string, payload io.Reader) error {
	t.Appends.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.AppendHook != nil {
		if err := t.AppendHook(path); err != nil {
			return err
		}
	}
	if _, err := ReadContainer(path); err != nil {
		return err
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", len(data)); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HashID derives a deterministic ObjectID in the kernel's "hi:lo" text form.
func HashID(domain string, data []byte) toolchain.ObjectID {
	h := blake3.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(data)
	sum := h.Sum(nil)
	return toolchain.ObjectID(hex.EncodeToString(sum[:8]) + ":" + hex.EncodeToString(sum[8:16]))
}

// ReadContainer decodes the container at path.
func ReadContainer(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeContainer(f)
}

// DecodeContainer decodes a container from r.
func DecodeContainer(r io.Reader) (*Container, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	fields := strings.Fields(header)
	if len(fields) != 4 || fields[0] != magic {
		return nil, ErrBadContainer
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	c := &Container{
		ID:      toolchain.ObjectID(fields[1]),
		Perm:    toolchain.Perm(fields[2]),
		Content: make([]byte, n),
	}
	if _, err := io.ReadFull(br, c.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			return c, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
		}
		size, err := strconv.Atoi(strings.TrimSuffix(line, "\n"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
		}
		p := make([]byte, size)
		if _, err := io.ReadFull(br, p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
		}
		c.Payloads = append(c.Payloads, p)
	}
}
