package toolchain

import "strings"

// Perm is an object permission profile passed to the encoder.
type Perm string

const (
	PermRead          Perm = "R"
	PermReadExec      Perm = "RX"
	PermReadExecWrite Perm = "RXW"
	PermReadExecHash  Perm = "RXH"
)

// Hashed reports whether objects encoded under p derive their identity from content.
// Objects without H get a fresh identity from the encoder.
func (p Perm) Hashed() bool {
	return strings.ContainsRune(string(p), 'H')
}
