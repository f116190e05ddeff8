package cmd

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dendrascience/rootimg/tree"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewScanCmd creates and returns the scan subcommand. It reads a source tree the way
// build does and reports what a build would compile, without running any tool.
func NewScanCmd() *cobra.Command {
	var showTree bool

	cmd := &cobra.Command{
		Use:   "scan [PATH]",
		Short: "Summarize a source tree",
		Long: `Scan a source tree and count what a build would compile.

Symlinks are reported with their literal targets and never followed. Entry types
other than regular files, directories and symlinks make the scan fail, just as
they would fail a build.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runScan(cmd.OutOrStdout(), dir, showTree)
		},
	}

	cmd.Flags().BoolVarP(&showTree, "tree", "t", false, "Print every entry")

	return cmd
}

func runScan(w io.Writer, dir string, showTree bool) error {
	root, err := tree.Scan(dir)
	if err != nil {
		return err
	}
	if showTree {
		err := root.Walk(func(n *tree.Node) error {
			depth, name := 0, "/"
			if n.Path != "" {
				depth = strings.Count(n.Path, "/") + 1
				name = path.Base(n.Path) + "/"
			}
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
			for _, e := range n.Entries {
				if e.Kind == tree.Directory {
					continue
				}
				line := e.Name
				if e.Kind == tree.Symlink {
					line += " -> " + e.Target
				}
				fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth+1), line)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	c := root.Counts()
	fmt.Fprintf(w, "namespaces: %d\n", c.Namespaces)
	fmt.Fprintf(w, "files:      %d (%s)\n", c.Files, humanize.Bytes(uint64(c.Bytes)))
	fmt.Fprintf(w, "symlinks:   %d\n", c.Symlinks)
	return nil
}
