package image

import (
	"errors"
	"fmt"
)

// Sentinel errors for package image.
var (
	ErrBadManifest    = errors.New("malformed manifest")
	ErrIndexVersion   = errors.New("unsupported index version")
	ErrVerifyFailed   = errors.New("image verification failed")
	ErrUnsafeInitPath = errors.New("init path must be relative and inside the source tree")
	ErrBuildInSource  = errors.New("build directory overlaps source tree")
)

// MissingObjectError reports that a distinguished object required by the manifest is
// not part of the compiled tree.
type MissingObjectError struct {
	Path string
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("distinguished object %s not found in source tree", e.Path)
}
