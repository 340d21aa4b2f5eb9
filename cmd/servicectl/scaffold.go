package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/index"
)

func newScaffoldCmd(opts *rootOptions) *cobra.Command {
	var (
		root     string
		name     string
		tasks    string
		provider string
		kind     string
		force    bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "scaffold <folder>",
		Short: "Create a new service skeleton with README and manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root == "" {
				root = opts.cfg.Index.Root
			}
			res, err := index.Scaffold(index.ScaffoldOptions{
				Root:        root,
				ServicesDir: opts.cfg.Index.ServicesDir,
				Folder:      args[0],
				Meta: domain.ServiceMeta{
					Name:     name,
					Provider: provider,
					Tasks:    splitTasks(tasks),
					Kind:     domain.Kind(kind),
				},
				Force:  force,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, map[string]any{"files": res.Files, "dry_run": dryRun})
			}
			verb := "created"
			if dryRun {
				verb = "would create"
			}
			for _, f := range res.Files {
				success(out, "%s %s", verb, f)
			}
			if !dryRun {
				fmt.Fprintln(out, "Register the service in internal/services/builtins.go, then run `servicectl index build`.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "repository root (default: index.root from config)")
	cmd.Flags().StringVar(&name, "name", "", "service name (default: folder)")
	cmd.Flags().StringVar(&tasks, "tasks", "", "comma-separated task names (default: infer)")
	cmd.Flags().StringVar(&provider, "provider", "", "provider shown in the index")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindService), "service or plugin")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the files without writing them")
	return cmd
}

func splitTasks(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
