package toolchain

import (
	"errors"
	"fmt"
)

// Sentinel errors for package toolchain.
var (
	ErrEmptyObjectID     = errors.New("empty object id")
	ErrMalformedObjectID = errors.New("malformed object id")
	ErrNoContainer       = errors.New("encoder produced no container")
	ErrBadLine           = errors.New("malformed hierarchy line")
)

// EncodeError reports a failed encoder invocation.
type EncodeError struct {
	Source string
	Output string
	Err    error
}

func (e *EncodeError) Error() string {
	src := e.Source
	if src == "" {
		src = "(empty)"
	}
	return fmt.Sprintf("encoding %s to %s: %v", src, e.Output, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IdentityError reports an oracle that failed or returned no usable identifier.
type IdentityError struct {
	Container string
	Output    string
	Err       error
}

func (e *IdentityError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("identifying %s (oracle said %q): %v", e.Container, e.Output, e.Err)
	}
	return fmt.Sprintf("identifying %s: %v", e.Container, e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// SerializeError reports a namespace that could not be serialized or attached.
// Stage is StageHierarchy or StageAppend.
type SerializeError struct {
	Namespace string
	Stage     string
	Err       error
}

const (
	StageHierarchy = "hierarchy"
	StageAppend    = "append"
)

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serializing namespace %s (%s): %v", e.Namespace, e.Stage, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// toolFailure is the cause attached to the typed errors above when a subprocess exits
// unsuccessfully.
type toolFailure struct {
	tool   string
	err    error
	stderr string
}

func (f *toolFailure) Error() string {
	if f.stderr != "" {
		return fmt.Sprintf("%s: %v: %s", f.tool, f.err, f.stderr)
	}
	return fmt.Sprintf("%s: %v", f.tool, f.err)
}

func (f *toolFailure) Unwrap() error { return f.err }
