package cmd

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/dendrascience/rootimg/internal/config"
	"github.com/dendrascience/rootimg/version"
	"github.com/spf13/cobra"
)

const appName = "rootimg"

// NewRootCmd creates and returns the root cobra command for the rootimg CLI.
// It sets up all subcommands, command groups, and the persistent flags shared by
// every subcommand.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "rootimg - compile a directory tree into a kernel root filesystem image",
		Long: `rootimg compiles a host directory tree into a content-addressed object store
plus a namespace graph mirroring the tree, and packages it as the initial root
filesystem image of a capability-based kernel.

Every file becomes an object named by its ObjectID, identical files share one
object, and every directory becomes a namespace object whose entries start with
self (.) and parent (..) references. The build writes a manifest (kc) naming the
root namespace and the init program, and an archive (ramdisk.tar) of the store.

Use subcommands to perform different operations:
  - build: Compile a source tree into an image
  - scan: Summarize a source tree without compiling it
  - verify: Check a finished build for consistency
  - inspect: Show the namespace graph of a finished build
  - mount: Serve a finished build as a read-only filesystem
  - seed: Generate a sample source tree`,
		Version: version.GetFullVersion(),
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	groupImage := "image"
	groupFilesystem := "filesystem"
	groupUtilities := "utilities"

	// Add command groups for better organization
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupImage,
		Title: "Image Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	buildCmd := NewBuildCmd()
	scanCmd := NewScanCmd()
	verifyCmd := NewVerifyCmd()
	inspectCmd := NewInspectCmd()
	mountCmd := NewMountCmd()
	seedCmd := NewSeedCmd()
	versionCmd := NewVersionCmd()

	buildCmd.GroupID = groupImage
	scanCmd.GroupID = groupImage
	verifyCmd.GroupID = groupImage
	inspectCmd.GroupID = groupImage
	mountCmd.GroupID = groupFilesystem
	seedCmd.GroupID = groupUtilities
	versionCmd.GroupID = groupUtilities

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout(), appName)
		},
	}
}

// loadConfig resolves the configuration for cmd from its --config file, the
// environment and whatever flags cmd defines.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(config.LoadOptions{
		ConfigFilePath: path,
		Flags:          cmd.Flags(),
	})
}

// newLogger returns the logger commands report progress on.
func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          appName,
		Level:           level,
		ReportTimestamp: true,
	})
}

// addBuildDirFlag registers --build-dir, which overrides build_dir.
func addBuildDirFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("build-dir", "b", "build", "Build directory")
}
