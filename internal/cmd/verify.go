package cmd

import (
	"fmt"
	"io"

	"github.com/dendrascience/rootimg/image"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates and returns the verify subcommand. It checks a finished build
// for internal consistency.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [BUILD_DIR]",
		Short: "Check a finished build for consistency",
		Long: `Verify a finished build directory.

This command checks that the manifest agrees with the build index, that every
object the index references is present in the store, that every namespace starts
with correct self and parent entries, and that the archive holds exactly the
retained objects plus the manifest and matches its recorded BLAKE3 digest.

BUILD_DIR defaults to the configured build_dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}

	addBuildDirFlag(cmd)
	cmd.Flags().String("archive-name", image.DefaultArchiveName, "Archive file name")
	cmd.Flags().String("manifest-name", image.DefaultManifestName, "Manifest file name")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	buildDir := cfg.BuildDir
	if len(args) > 0 {
		buildDir = args[0]
	}
	report, err := image.Verify(buildDir, image.Options{
		ArchiveName:  cfg.ArchiveName,
		ManifestName: cfg.ManifestName,
	})
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), buildDir, report)
	if !report.OK() {
		return fmt.Errorf("%w: %d problems in %s", image.ErrVerifyFailed, len(report.Problems), buildDir)
	}
	return nil
}

func printReport(w io.Writer, buildDir string, r *image.Report) {
	fmt.Fprintf(w, "build:      %s\n", buildDir)
	fmt.Fprintf(w, "objects:    %d\n", r.Objects)
	fmt.Fprintf(w, "namespaces: %d\n", r.Namespaces)
	fmt.Fprintf(w, "archive:    %d members, %s\n", r.Members, humanize.Bytes(uint64(r.ArchiveBytes)))
	if r.Digest != "" {
		fmt.Fprintf(w, "blake3:     %s\n", r.Digest)
	}
	for _, p := range r.Problems {
		fmt.Fprintf(w, "problem:    %s\n", p)
	}
	if r.OK() {
		fmt.Fprintln(w, "ok")
	}
}
