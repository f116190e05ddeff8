package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dendrascience/rootimg/image"
	"github.com/dendrascience/rootimg/toolchain"
	"github.com/dendrascience/rootimg/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInspectCmd creates and returns the inspect subcommand. It prints the namespace
// graph recorded in a build's index.
func NewInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect [PATH]",
		Short: "Show the namespace graph of a finished build",
		Long: `Inspect the build index of a finished build.

Without PATH, prints the manifest identities and every namespace. With PATH
(relative to the source root), prints the entry at PATH and, for a directory,
its serialized hierarchy lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			idx, err := image.ReadIndex(filepath.Join(cfg.BuildDir, image.IndexName))
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return inspectIndex(cmd.OutOrStdout(), idx, format)
			}
			return inspectPath(cmd.OutOrStdout(), idx, args[0], format)
		},
	}

	addBuildDirFlag(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, yaml)")

	return cmd
}

type indexSummary struct {
	Name       toolchain.ObjectID `yaml:"name"`
	Init       toolchain.ObjectID `yaml:"init"`
	InitPath   string             `yaml:"init_path"`
	BuildID    string             `yaml:"build_id"`
	Source     string             `yaml:"source"`
	Tool       version.Info       `yaml:"tool"`
	Objects    int                `yaml:"objects"`
	Namespaces []namespaceSummary `yaml:"namespaces"`
}

type namespaceSummary struct {
	Path    string             `yaml:"path"`
	ID      toolchain.ObjectID `yaml:"id"`
	Entries int                `yaml:"entries"`
}

func inspectIndex(w io.Writer, idx *image.Index, format string) error {
	s := indexSummary{
		Name:     idx.Root,
		Init:     idx.Init,
		InitPath: idx.InitPath,
		BuildID:  idx.BuildID,
		Source:   idx.Source,
		Tool:     idx.Tool,
		Objects:  len(idx.Objects),
	}
	for _, ns := range idx.Namespaces {
		s.Namespaces = append(s.Namespaces, namespaceSummary{Path: "/" + ns.Path, ID: ns.ID, Entries: len(ns.Entries)})
	}
	switch format {
	case "yaml":
		return writeYAML(w, s)
	case "text":
		fmt.Fprintf(w, "name=%s\n", s.Name)
		fmt.Fprintf(w, "init=%s (%s)\n", s.Init, s.InitPath)
		fmt.Fprintf(w, "build %s by %s %s from %s\n", s.BuildID, s.Tool.Package, s.Tool.Version, s.Source)
		fmt.Fprintf(w, "%d objects, %d namespaces\n", s.Objects, len(s.Namespaces))
		for _, ns := range s.Namespaces {
			fmt.Fprintf(w, "  %s %s (%d entries)\n", ns.ID, ns.Path, ns.Entries)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func inspectPath(w io.Writer, idx *image.Index, p, format string) error {
	e, err := idx.Lookup(p)
	if err != nil {
		return err
	}
	var ns *image.IndexNamespace
	switch e.Line().Tag {
	case toolchain.TagNamespace, toolchain.TagDirectory:
		ns, _ = idx.NamespaceByID(toolchain.ObjectID(e.Ref))
	}
	switch format {
	case "yaml":
		if ns != nil {
			return writeYAML(w, ns)
		}
		return writeYAML(w, e)
	case "text":
		fmt.Fprintln(w, e.Line())
		if ns != nil {
			lines := make([]toolchain.Line, 0, len(ns.Entries))
			for _, entry := range ns.Entries {
				lines = append(lines, entry.Line())
			}
			fmt.Fprintf(w, "%s\n", toolchain.FormatLines(lines))
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
