package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndParseLines(t *testing.T) {
	lines := []Line{
		{Tag: TagNamespace, Ref: "aa:01", Name: "."},
		{Tag: TagNamespace, Ref: "aa:00", Name: ".."},
		{Tag: TagDirectory, Ref: "bb:02", Name: "bin"},
		{Tag: TagFile, Ref: "cc:03", Name: "read me.txt"},
		{Tag: TagSymlink, Ref: "../usr/bin/init_bootstrap", Name: "link"},
	}

	data := FormatLines(lines)
	assert.Equal(t, "n aa:01 .\nn aa:00 ..\nd bb:02 bin\nr cc:03 read me.txt\ns ../usr/bin/init_bootstrap link", string(data))

	parsed, err := ParseLines(data)
	require.NoError(t, err)
	assert.Equal(t, lines, parsed)
}

func TestLineValidate(t *testing.T) {
	tests := []struct {
		name string
		line Line
		ok   bool
	}{
		{name: "file", line: Line{Tag: TagFile, Ref: "1:2", Name: "a"}, ok: true},
		{name: "name with space", line: Line{Tag: TagFile, Ref: "1:2", Name: "a b"}, ok: true},
		{name: "unknown tag", line: Line{Tag: 'x', Ref: "1:2", Name: "a"}},
		{name: "empty ref", line: Line{Tag: TagFile, Name: "a"}},
		{name: "target with space", line: Line{Tag: TagSymlink, Ref: "a b", Name: "l"}},
		{name: "name with newline", line: Line{Tag: TagFile, Ref: "1:2", Name: "a\nb"}},
		{name: "empty name", line: Line{Tag: TagFile, Ref: "1:2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBadLine)
			}
		})
	}
}

func TestParseLinesRejectsGarbage(t *testing.T) {
	_, err := ParseLines([]byte("n aa:01 .\nnonsense"))
	assert.ErrorIs(t, err, ErrBadLine)
}
