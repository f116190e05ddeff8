package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dendrascience/rootimg/image"
	"github.com/dendrascience/rootimg/objstore"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "ROOTIMG"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	Tools        ToolsConfig `mapstructure:"tools" yaml:"tools"`
	BuildDir     string      `mapstructure:"build_dir" yaml:"build_dir"`
	InitPath     string      `mapstructure:"init_path" yaml:"init_path"`
	Jobs         int         `mapstructure:"jobs" yaml:"jobs"`
	LogLevel     string      `mapstructure:"log_level" yaml:"log_level"`
	ArchiveName  string      `mapstructure:"archive_name" yaml:"archive_name"`
	ManifestName string      `mapstructure:"manifest_name" yaml:"manifest_name"`
}

// ToolsConfig names the external object tools.
type ToolsConfig struct {
	Encoder   string `mapstructure:"encoder" yaml:"encoder"`
	Identity  string `mapstructure:"identity" yaml:"identity"`
	Hierarchy string `mapstructure:"hierarchy" yaml:"hierarchy"`
	Append    string `mapstructure:"append" yaml:"append"`
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath loads a YAML config file when set. A missing file is an error.
	ConfigFilePath string
	// Flags, when set, override file and environment values for every flag that
	// was changed on the command line.
	Flags *pflag.FlagSet
}

// flagKeys maps config keys to the flag names that can override them.
var flagKeys = map[string]string{
	"tools.encoder":   "encoder",
	"tools.identity":  "identity",
	"tools.hierarchy": "hierarchy",
	"tools.append":    "append",
	"build_dir":       "build-dir",
	"init_path":       "init-path",
	"jobs":            "jobs",
	"log_level":       "log-level",
	"archive_name":    "archive-name",
	"manifest_name":   "manifest-name",
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	exec := toolchain.NewExec()
	return &Config{
		Tools: ToolsConfig{
			Encoder:   exec.EncoderPath,
			Identity:  exec.IdentityPath,
			Hierarchy: exec.HierarchyPath,
			Append:    exec.AppendPath,
		},
		BuildDir:     "build",
		InitPath:     image.DefaultInitPath,
		Jobs:         runtime.NumCPU(),
		LogLevel:     "info",
		ArchiveName:  image.DefaultArchiveName,
		ManifestName: image.DefaultManifestName,
	}
}

// Load resolves the configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("tools.encoder", defaults.Tools.Encoder)
	v.SetDefault("tools.identity", defaults.Tools.Identity)
	v.SetDefault("tools.hierarchy", defaults.Tools.Hierarchy)
	v.SetDefault("tools.append", defaults.Tools.Append)
	v.SetDefault("build_dir", defaults.BuildDir)
	v.SetDefault("init_path", defaults.InitPath)
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("archive_name", defaults.ArchiveName)
	v.SetDefault("manifest_name", defaults.ManifestName)

	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(opts.ConfigFilePath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.ConfigFilePath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range flagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	tools := map[string]string{
		"tools.encoder":   c.Tools.Encoder,
		"tools.identity":  c.Tools.Identity,
		"tools.hierarchy": c.Tools.Hierarchy,
		"tools.append":    c.Tools.Append,
	}
	for _, key := range []string{"tools.encoder", "tools.identity", "tools.hierarchy", "tools.append"} {
		if strings.TrimSpace(tools[key]) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalid, key)
		}
	}
	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be at least 1, got %d", ErrInvalid, c.Jobs)
	}
	if c.BuildDir == "" {
		return fmt.Errorf("%w: build_dir is empty", ErrInvalid)
	}
	if err := image.CheckInitPath(c.InitPath); err != nil {
		return fmt.Errorf("%w: init_path: %w", ErrInvalid, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}
	for key, name := range map[string]string{"archive_name": c.ArchiveName, "manifest_name": c.ManifestName} {
		if name == "" || strings.ContainsRune(name, '/') || name == "." || name == ".." {
			return fmt.Errorf("%w: %s %q is not a file name", ErrInvalid, key, name)
		}
	}
	// The manifest shares the store directory with objects and scratch files.
	if objstore.IsScratch(c.ManifestName) {
		return fmt.Errorf("%w: manifest_name %q is reserved for scratch files", ErrInvalid, c.ManifestName)
	}
	if _, err := toolchain.ParseObjectID(c.ManifestName); err == nil {
		return fmt.Errorf("%w: manifest_name %q could name an object", ErrInvalid, c.ManifestName)
	}
	return nil
}

// Exec returns the subprocess toolchain the configuration names.
func (c *Config) Exec() *toolchain.Exec {
	return &toolchain.Exec{
		EncoderPath:   c.Tools.Encoder,
		IdentityPath:  c.Tools.Identity,
		HierarchyPath: c.Tools.Hierarchy,
		AppendPath:    c.Tools.Append,
	}
}

// ImageOptions returns build options for source driven by tools.
func (c *Config) ImageOptions(source string, tools toolchain.Tools, logger *log.Logger) image.Options {
	return image.Options{
		Source:       source,
		BuildDir:     c.BuildDir,
		InitPath:     c.InitPath,
		ArchiveName:  c.ArchiveName,
		ManifestName: c.ManifestName,
		Jobs:         c.Jobs,
		Tools:        tools,
		Logger:       logger,
	}
}
