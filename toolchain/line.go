package toolchain

import (
	"bytes"
	"fmt"
	"strings"
)

// Tag is the kind tag of a hierarchy line.
type Tag byte

const (
	TagNamespace Tag = 'n'
	TagDirectory Tag = 'd'
	TagFile      Tag = 'r'
	TagSymlink   Tag = 's'
)

// Line is one entry of a namespace: "<tag> <ref> <name>". Ref is an ObjectID for
// every tag except TagSymlink, where it is the literal link target.
type Line struct {
	Tag  Tag
	Ref  string
	Name string
}

func (l Line) String() string {
	return string(l.Tag) + " " + l.Ref + " " + l.Name
}

// Validate reports whether l can be written as a single hierarchy line and read back
// unchanged. The name is the rest of the line, so it may contain spaces; the ref may
// not.
func (l Line) Validate() error {
	switch l.Tag {
	case TagNamespace, TagDirectory, TagFile, TagSymlink:
	default:
		return fmt.Errorf("%w: unknown tag %q", ErrBadLine, l.Tag)
	}
	if l.Ref == "" || strings.ContainsAny(l.Ref, " \t\r\n") {
		return fmt.Errorf("%w: ref %q of %q", ErrBadLine, l.Ref, l.Name)
	}
	if l.Name == "" || strings.ContainsAny(l.Name, "\r\n") {
		return fmt.Errorf("%w: name %q", ErrBadLine, l.Name)
	}
	return nil
}

// FormatLines renders lines as the hierarchy encoder's input, one per line with no
// trailing newline.
func FormatLines(lines []Line) []byte {
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.String())
	}
	return b.Bytes()
}

// ParseLines is the inverse of FormatLines. Empty lines are skipped.
func ParseLines(data []byte) ([]Line, error) {
	var lines []Line
	for _, raw := range strings.Split(string(data), "\n") {
		if raw == "" {
			continue
		}
		tag, rest, ok := strings.Cut(raw, " ")
		if !ok || len(tag) != 1 {
			return nil, fmt.Errorf("%w: %q", ErrBadLine, raw)
		}
		ref, name, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadLine, raw)
		}
		l := Line{Tag: Tag(tag[0]), Ref: ref, Name: name}
		if err := l.Validate(); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}
