package toolchain

import (
	"fmt"
	"strings"
)

// ObjectID is the kernel's identifier for an object, in its textual form as printed by
// the identity oracle. It is used verbatim as the object's file name in the store.
type ObjectID string

func (id ObjectID) String() string { return string(id) }

// ParseObjectID validates oracle output. Surrounding whitespace is dropped. The
// accepted form is hexadecimal digits, optionally grouped with ':' and optionally
// prefixed with "0x", which is what the kernel's loader parses.
func ParseObjectID(s string) (ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyObjectID
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isHex(c):
			digits++
		case c == ':':
		case c == 'x' && i > 0 && s[i-1] == '0':
		default:
			return "", fmt.Errorf("%w: %q", ErrMalformedObjectID, s)
		}
	}
	if digits == 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedObjectID, s)
	}
	return ObjectID(s), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
