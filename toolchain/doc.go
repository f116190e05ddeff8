// Package toolchain defines the four external collaborators the image compiler drives
// and a subprocess implementation of them.
//
// The collaborators are opaque:
//   - an Encoder turns a raw file (or empty input) into an object container,
//   - an Oracle reports the ObjectID of a container,
//   - a HierarchyEncoder serializes an ordered list of (kind, id, name) lines into a
//     namespace payload,
//   - an Appender attaches a payload to a container in place.
//
// Exec runs the kernel build's file2obj, objstat, hier and appendobj tools. Every
// invocation checks the tool's exit status and captures its stderr for diagnosis.
package toolchain
