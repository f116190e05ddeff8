// Package main provides the rootimg command-line interface.
//
// rootimg compiles a host directory tree into the initial root filesystem image of
// a capability-based kernel: a content-addressed object store, a namespace object
// per directory, a manifest (kc) naming the root namespace and the init program,
// and a tar archive of the store.
//
// The main binary supports multiple subcommands:
//   - build: Compile a source tree into an image
//   - scan: Summarize a source tree without compiling it
//   - verify: Check a finished build for consistency
//   - inspect: Show the namespace graph of a finished build
//   - mount: Serve a finished build as a read-only filesystem
//   - seed: Generate a sample source tree
package main
