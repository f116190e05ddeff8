package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ObjectID
		wantErr error
	}{
		{name: "grouped hex", input: "0123456789abcdef:FEDCBA9876543210", want: "0123456789abcdef:FEDCBA9876543210"},
		{name: "trailing newline", input: "deadbeef:00000001\n", want: "deadbeef:00000001"},
		{name: "0x prefix", input: "0x1f", want: "0x1f"},
		{name: "plain hex", input: "abc", want: "abc"},
		{name: "empty", input: "", wantErr: ErrEmptyObjectID},
		{name: "whitespace only", input: " \n\t", wantErr: ErrEmptyObjectID},
		{name: "separators only", input: "::", wantErr: ErrMalformedObjectID},
		{name: "embedded space", input: "dead beef", wantErr: ErrMalformedObjectID},
		{name: "path separator", input: "dead/beef", wantErr: ErrMalformedObjectID},
		{name: "error text", input: "error: no such object", wantErr: ErrMalformedObjectID},
		{name: "stray x", input: "x1f", wantErr: ErrMalformedObjectID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectID(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPermHashed(t *testing.T) {
	assert.True(t, PermReadExecHash.Hashed())
	assert.False(t, PermReadExecWrite.Hashed())
	assert.False(t, PermRead.Hashed())
}
