package cmd

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/dendrascience/rootimg/image"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// seedDirs are the directories seed distributes files across.
var seedDirs = []string{
	"bin",
	"etc",
	"etc/init.d",
	"lib",
	"usr/bin",
	"usr/lib",
	"usr/share/doc",
	"var/log",
}

// NewSeedCmd creates and returns the seed subcommand for the rootimg CLI.
// It generates a sample source tree to build.
func NewSeedCmd() *cobra.Command {
	var (
		outputPath   string
		fileCount    int
		symlinkCount int
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a sample root filesystem tree",
		Long: `Generate a sample source tree for testing rootimg builds.

Creates an init program at usr/bin/init_bootstrap and distributes files across
a small FHS-like hierarchy. Each file contains a single UUID line drawn from a
pool of 50, so larger trees contain duplicate content that a build stores once.
Symlinks in bin/ point at generated files by relative path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.OutOrStdout(), outputPath, fileCount, symlinkCount, verbose)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path to output directory (required)")
	cmd.Flags().IntVarP(&fileCount, "count", "c", 200, "Number of files to generate")
	cmd.Flags().IntVarP(&symlinkCount, "symlinks", "s", 10, "Number of symlinks to generate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.MarkFlagRequired("output")

	return cmd
}

func runSeed(w io.Writer, outputPath string, fileCount, symlinkCount int, verbose bool) error {
	if fileCount < 0 || symlinkCount < 0 {
		return errors.New("counts must not be negative")
	}
	if verbose {
		fmt.Fprintf(w, "Generating %d files and %d symlinks in %s\n", fileCount, symlinkCount, outputPath)
	}

	initPath := filepath.Join(outputPath, filepath.FromSlash(image.DefaultInitPath))
	if err := os.MkdirAll(filepath.Dir(initPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(initPath, []byte("#!init\n"+uuid.NewString()+"\n"), 0o755); err != nil {
		return fmt.Errorf("failed to write init program: %w", err)
	}

	// Generate pool of 50 UUIDs
	uuidPool := make([]string, 50)
	for i := range uuidPool {
		uuidPool[i] = uuid.New().String()
	}

	var created []string
	for len(created) < fileCount {
		dir := filepath.Join(outputPath, filepath.FromSlash(seedDirs[randInt(len(seedDirs))]))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		// Generate random filename (lowercase hex)
		filePath := filepath.Join(dir, fmt.Sprintf("%08x", randInt(0xFFFFFFFF)))
		if _, err := os.Stat(filePath); err == nil {
			continue
		}
		content := uuidPool[randInt(len(uuidPool))] + "\n"
		if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", filePath, err)
		}
		created = append(created, filePath)

		if verbose && len(created)%1000 == 0 {
			fmt.Fprintf(w, "Created %d/%d files...\n", len(created), fileCount)
		}
	}

	targets := append(created, initPath)
	binDir := filepath.Join(outputPath, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", binDir, err)
	}
	for i := 0; i < symlinkCount; i++ {
		target, err := filepath.Rel(binDir, targets[randInt(len(targets))])
		if err != nil {
			return err
		}
		link := filepath.Join(binDir, fmt.Sprintf("link-%03d", i))
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", link, err)
		}
	}

	if verbose {
		fmt.Fprintf(w, "Successfully created %d files and %d symlinks\n", len(created)+1, symlinkCount)
	}
	return nil
}

// randInt returns a uniform random int in [0, n).
func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}
