// Package rootfs serves a finished build as a read-only FUSE filesystem.
//
// The tree is rebuilt from the build index: every namespace becomes a directory,
// every file entry a regular file whose contents are the stored object container
// for its ObjectID, and every symlink entry a symlink with its literal target.
// Entries that share an ObjectID share an inode, so deduplicated files show up as
// hard links. Nothing is writable.
//
// The main entry point is New, whose result can be passed to fs.Serve from
// bazil.org/fuse/fs.
package rootfs
