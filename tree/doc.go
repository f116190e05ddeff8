// Package tree scans a host directory into an in-memory namespace tree.
//
// Every directory, including the root, becomes a Node. Every other child becomes an
// Entry on its parent: regular files keep their source path, symbolic links keep their
// literal target string (never resolved or followed), and subdirectories own their
// child Node. Entries are ordered by name so that repeated scans of an unchanged tree
// produce identical trees.
//
// Node names are derived from the path from the root ("root", "root_usr",
// "root_usr_bin", ...) and are used to give staged objects stable, readable names.
package tree
