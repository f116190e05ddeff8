package tree

import (
	"errors"
	"fmt"
)

// Sentinel errors for package tree.
var (
	ErrNotDirectory    = errors.New("scan root is not a directory")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ScanError reports a directory or entry that could not be read. Any ScanError aborts
// the build.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
