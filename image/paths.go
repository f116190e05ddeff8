package image

import (
	"path/filepath"
	"strings"
)

// PathsOverlap reports whether one of a and b contains the other. Relative paths are
// resolved against the working directory first.
func PathsOverlap(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		absA = filepath.Clean(a)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		absB = filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(absA, strings.TrimSuffix(absB, sep)+sep) ||
		strings.HasPrefix(absB, strings.TrimSuffix(absA, sep)+sep)
}
