package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathsOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same directory", "/srv/rootfs", "/srv/rootfs", true},
		{"trailing separator", "/srv/rootfs/", "/srv/rootfs", true},
		{"build dir inside source", "/srv/rootfs", "/srv/rootfs/build", true},
		{"source inside build dir", "/srv/build/rootfs", "/srv/build", true},
		{"mountpoint inside build dir", "build", "build/mnt", true},
		{"unclean relative path", "build/../build/mnt", "build", true},
		{"shared name prefix", "/srv/build", "/srv/build-old", false},
		{"siblings", "/srv/rootfs", "/srv/build", false},
		{"relative siblings", "build", "mnt", false},
		{"filesystem root contains everything", "/", "/srv/build", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PathsOverlap(tt.a, tt.b))
			assert.Equal(t, tt.want, PathsOverlap(tt.b, tt.a), "overlap is symmetric")
		})
	}
}
