// Package version reports the rootimg version and build metadata.
//
// Version, Commit and Date can be injected at link time:
//
//	-ldflags "-X github.com/dendrascience/rootimg/version.Version=v1.0.0 -X github.com/dendrascience/rootimg/version.Commit=abc123"
//
// When they are not, the values fall back to the module's build info, then to
// development defaults. GetInfo is embedded in every build index.
package version
