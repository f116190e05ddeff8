package cmd

import (
	"fmt"
	"io"

	"github.com/dendrascience/rootimg/image"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewBuildCmd creates and returns the build subcommand. It compiles a source tree
// into an object store and writes the manifest, index and archive.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build SOURCE",
		Short: "Compile a directory tree into a root filesystem image",
		Long: `Compile SOURCE into a root filesystem image.

Every regular file is encoded and identified with the kernel's object tools and
stored once per ObjectID under BUILD_DIR/object_output. Every directory becomes a
namespace object. When the whole tree has compiled, the manifest (kc) is written
into the store and the store is packed into BUILD_DIR/ramdisk.tar.

The build fails without writing a manifest or archive if any tool fails or the
init program (usr/bin/init_bootstrap by default) is missing from SOURCE.`,
		Args: cobra.ExactArgs(1),
		RunE: runBuild,
	}

	addBuildDirFlag(cmd)
	cmd.Flags().String("init-path", image.DefaultInitPath, "Path of the init program, relative to SOURCE")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum concurrent tool invocations (default: number of CPUs)")
	cmd.Flags().String("archive-name", image.DefaultArchiveName, "Archive file name")
	cmd.Flags().String("manifest-name", image.DefaultManifestName, "Manifest file name")
	cmd.Flags().String("encoder", "", "Object encoder tool (default file2obj)")
	cmd.Flags().String("identity", "", "Identity oracle tool (default objstat)")
	cmd.Flags().String("hierarchy", "", "Hierarchy encoder tool (default hier)")
	cmd.Flags().String("append", "", "Payload appender tool (default appendobj)")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	logger.Debug("tools",
		"encoder", cfg.Tools.Encoder,
		"identity", cfg.Tools.Identity,
		"hierarchy", cfg.Tools.Hierarchy,
		"append", cfg.Tools.Append,
		"jobs", cfg.Jobs)

	img, err := image.Build(cmd.Context(), cfg.ImageOptions(args[0], cfg.Exec(), logger))
	if err != nil {
		return err
	}
	printImage(cmd.OutOrStdout(), img)
	return nil
}

func printImage(w io.Writer, img *image.Image) {
	fmt.Fprintf(w, "name:       %s\n", img.Manifest.Name)
	fmt.Fprintf(w, "init:       %s\n", img.Manifest.Init)
	fmt.Fprintf(w, "namespaces: %d\n", len(img.Index.Namespaces))
	fmt.Fprintf(w, "files:      %d\n", len(img.Index.Files))
	fmt.Fprintf(w, "objects:    %d\n", len(img.Index.Objects))
	fmt.Fprintf(w, "archive:    %s (%s, %d members)\n", img.ArchivePath, humanize.Bytes(uint64(img.Archive.Bytes)), img.Archive.Members)
	fmt.Fprintf(w, "blake3:     %s\n", img.Archive.Digest)
}
