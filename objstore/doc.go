// Package objstore manages the object output directory of an image build.
//
// Retained objects live at the top of the directory, named by their ObjectID. Work in
// progress lives under scratch names beginning with "__": each build stages its
// containers in its own "__run-<uuid>" directory, sharded into buckets so no single
// directory grows too large. Packaging skips every scratch name.
//
// The store holds at most one physical object per ObjectID. When a staged container
// turns out to duplicate an object already in the store, the staged copy is replaced
// by another hard link to the existing object, so every logical reference shares one
// inode.
package objstore
