package main

import (
	"github.com/spf13/cobra"

	"github.com/neuroserve/neuroserve/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := storage.Open(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := storage.Migrate(ctx, db, opts.cfg.Database.Driver)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				if applied == nil {
					applied = []string{}
				}
				return printJSON(out, map[string]any{"driver": opts.cfg.Database.Driver, "applied": applied})
			}
			if len(applied) == 0 {
				success(out, "database is up to date")
				return nil
			}
			for _, v := range applied {
				success(out, "applied %s", v)
			}
			return nil
		},
	}
}
