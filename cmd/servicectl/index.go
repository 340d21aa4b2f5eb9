package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/index"
	"github.com/neuroserve/neuroserve/internal/manifest"
	"github.com/neuroserve/neuroserve/internal/services"
)

type indexOptions struct {
	root          string
	forceReadme   bool
	forceManifest bool
	updateAll     bool
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	iopts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or lint the services overview",
	}
	cmd.PersistentFlags().StringVar(&iopts.root, "root", "", "repository root (default: index.root from config)")

	build := &cobra.Command{
		Use:   "build",
		Short: "Regenerate READMEs, manifests and the overview page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexBuild(cmd, opts, iopts)
		},
	}
	build.Flags().BoolVar(&iopts.forceReadme, "force-readme", false, "report every README, including unchanged ones")
	build.Flags().BoolVar(&iopts.forceManifest, "force-manifest", false, "regenerate manifests from code metadata only")
	build.Flags().BoolVar(&iopts.updateAll, "update-all", false, "shortcut for --force-readme --force-manifest")

	lint := &cobra.Command{
		Use:   "lint [file]",
		Short: "Check the overview page against the files it links to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexLint(cmd.Context(), cmd, opts, iopts, args)
		},
	}

	cmd.AddCommand(build, lint)
	return cmd
}

func (o *indexOptions) rootDir(opts *rootOptions) string {
	if o.root != "" {
		return o.root
	}
	return opts.cfg.Index.Root
}

func runIndexBuild(cmd *cobra.Command, opts *rootOptions, iopts *indexOptions) error {
	if iopts.updateAll {
		iopts.forceReadme = true
		iopts.forceManifest = true
	}
	root := iopts.rootDir(opts)
	cfg := opts.cfg.Index

	entries, err := manifest.Discover(root, cfg.ServicesDir, domain.KindService)
	if err != nil {
		return err
	}
	items := index.Collect(root, entries, services.Metas())

	stats, err := index.Build(index.BuildOptions{
		Root:          root,
		Kind:          domain.KindService,
		Items:         items,
		OutputFile:    cfg.OutputFile,
		ForceReadme:   iopts.forceReadme,
		ForceManifest: iopts.forceManifest,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return printJSON(out, stats)
	}
	if opts.verbose {
		for _, a := range stats.Actions {
			fmt.Fprintf(out, "  %-18s %s\n", a.Kind, a.Path)
		}
	}
	success(out, "%d services: %d READMEs created, %d updated, %d manifests changed, overview changed: %t",
		stats.Items, stats.ReadmesCreated, stats.ReadmesUpdated, stats.ManifestsChanged, stats.OverviewChanged)
	return nil
}

func runIndexLint(ctx context.Context, cmd *cobra.Command, opts *rootOptions, iopts *indexOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	root := iopts.rootDir(opts)
	file := filepath.Join(root, filepath.FromSlash(opts.cfg.Index.OutputFile))
	if len(args) == 1 {
		file = args[0]
	}

	issues, err := index.LintFile(ctx, file, root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		if issues == nil {
			issues = []index.Issue{}
		}
		if err := printJSON(out, issues); err != nil {
			return err
		}
	} else {
		for _, is := range issues {
			warning(out, "%s", is.String())
		}
	}

	if len(issues) > 0 {
		if !opts.json {
			printError(cmd.ErrOrStderr(), fmt.Errorf("%s: %d issue(s)", file, len(issues)))
		}
		return errSilent
	}
	if !opts.json {
		success(out, "%s is consistent", file)
	}
	return nil
}
