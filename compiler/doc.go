// Package compiler turns a scanned namespace tree into objects in an object store.
//
// Files are materialized with content-derived identities: the encoder writes a
// container with the hashed permission profile, the oracle names it, and the store
// keeps one physical object per name.
//
// Namespaces use a two-phase identity. A namespace must list its own ObjectID (".")
// and its parent's ("..") before its content exists, so the compiler first reserves an
// identity by encoding an empty placeholder, then resolves the children, serializes
// the entry list, and appends it to the placeholder in place. The namespace stays
// addressable under the reserved identity even though its content has changed since.
//
// Siblings are compiled concurrently. A namespace waits for all of its children before
// serializing itself, and the first failure anywhere cancels the remaining work.
package compiler
