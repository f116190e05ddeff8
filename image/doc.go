// Package image packages a compiled object store into the artifacts the kernel
// loader consumes.
//
// A build directory looks like this after a successful build:
//
//	build/
//	  object_output/      the object store; kc, one file per ObjectID, __ scratch
//	  namespace_output/   serialized namespace payloads, for diagnosis
//	  index.cbor          the namespace graph, for verify, inspect and mount
//	  ramdisk.tar         every retained object plus kc, scratch excluded
//	  ramdisk.tar.b3      BLAKE3-256 of the archive
//
// The manifest kc holds two lines, name=<root namespace id> and
// init=<init program id>. Manifest and archive are written only after the whole tree
// has compiled and the init program has been found, and both are renamed into place
// so a failed build never leaves a partial artifact behind.
package image
