package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/rootimg/image"
	"github.com/dendrascience/rootimg/rootfs"
	"github.com/dendrascience/rootimg/version"
	"github.com/spf13/cobra"
)

// NewMountCmd creates and returns the mount subcommand for the rootimg CLI.
// It serves a finished build as a read-only FUSE filesystem.
func NewMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount BUILD_DIR MOUNTPOINT",
		Short: "Mount a finished build read-only",
		Long: `Mount a finished build at the specified mountpoint.

BUILD_DIR is a build directory holding index.cbor and object_output.
MOUNTPOINT is the directory where the filesystem will be mounted.

Directories are namespaces, files read back as their stored object containers,
and symlinks keep their literal targets. Files that share an object share an
inode. Interrupt to unmount.`,
		Args: cobra.ExactArgs(2),
		RunE: runMount,
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	buildDir := args[0]
	mountpoint := args[1]
	if image.PathsOverlap(buildDir, mountpoint) {
		return fmt.Errorf("mountpoint %s overlaps build directory %s", mountpoint, buildDir)
	}

	filesystem, err := rootfs.Open(buildDir)
	if err != nil {
		return err
	}

	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName(appName),
		fuse.Subtype(appName),
		fuse.ReadOnly(),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, unmounting")
		if err := fuse.Unmount(mountpoint); err != nil {
			logger.Error("unmount failed", "mountpoint", mountpoint, "err", err)
		}
	}()

	logger.Info("mounted",
		"version", version.GetVersion(),
		"mountpoint", mountpoint,
		"build", buildDir,
		"root", filesystem.Index.Root)
	return fs.Serve(c, filesystem)
}
