// Package config loads rootimg settings.
//
// Values are layered, later layers winning: built-in defaults, an optional YAML
// config file, ROOTIMG_* environment variables (dots become underscores, so
// tools.encoder is ROOTIMG_TOOLS_ENCODER), and command-line flags.
package config
