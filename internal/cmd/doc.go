// Package cmd provides the command-line interface implementation for rootimg.
//
// This package contains all the subcommand implementations for the rootimg CLI tool.
// It uses the Cobra library for command structure and Fang for styling.
//
// The package is organized into the following commands:
//   - root: Main command coordinator, persistent --config and --log-level flags
//   - build: Source tree compilation into an object store, manifest and archive
//   - scan: Source tree summary without running any tool
//   - verify: Consistency checking of a finished build
//   - inspect: Namespace graph listing from the build index
//   - mount: Read-only FUSE view of a finished build
//   - seed: Sample source tree generation
//
// Each command is implemented as a separate file with its own constructor function
// that returns a *cobra.Command. Settings are resolved through internal/config, so
// every flag can also come from the config file or a ROOTIMG_* variable.
package cmd
