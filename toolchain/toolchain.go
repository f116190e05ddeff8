package toolchain

import (
	"context"
	"io"
)

// Encoder translates the file at src into an object container at dst. An empty src
// encodes empty content.
type Encoder interface {
	Encode(ctx context.Context, src, dst string, perm Perm) error
}

// Oracle returns the ObjectID of the container at path.
type Oracle interface {
	Identify(ctx context.Context, path string) (ObjectID, error)
}

// HierarchyEncoder serializes lines into a namespace payload written to dst.
type HierarchyEncoder interface {
	EncodeHierarchy(ctx context.Context, lines []Line, dst string) error
}

// Appender embeds payload into the container at path, in place.
type Appender interface {
	Append(ctx context.Context, path string, payload io.Reader) error
}

// Tools bundles the four collaborators. Implementations must be safe for concurrent
// use as long as callers use distinct paths.
type Tools interface {
	Encoder
	Oracle
	HierarchyEncoder
	Appender
}
