package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered services and their tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := newBackend(opts).List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				provider := r.Provider
				if provider == "" {
					provider = "-"
				}
				table = append(table, []string{r.Name, provider, strings.Join(r.Tasks, ", ")})
			}
			printTable(out, []string{"NAME", "PROVIDER", "TASKS"}, table)
			return nil
		},
	}
}
