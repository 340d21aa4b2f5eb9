package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/observability"
)

var version = "dev"

// errSilent marks failures that were already reported to the user.
var errSilent = errors.New("silent")

type rootOptions struct {
	cfgFile string
	json    bool
	noColor bool
	verbose bool
	server  string
	apiKey  string

	cfg    *config.Config
	logger *observability.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "servicectl",
		Short: "Manage neuroserve services",
		Long: `servicectl builds and lints the services index, lists services and runs their
tasks (in-process or against a running server), scaffolds new services and applies
database migrations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor || opts.json {
				color.NoColor = true
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			opts.logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "console",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "servicectl",
			})
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path")
	flags.BoolVar(&opts.json, "json", false, "print machine-readable JSON")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&opts.server, "server", os.Getenv("NEUROSERVE_URL"), "run against a neuroserve server instead of in-process")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("NEUROSERVE_API_KEY"), "API key for --server")

	cmd.AddCommand(
		newIndexCmd(opts),
		newListCmd(opts),
		newRunCmd(opts),
		newScaffoldCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the servicectl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			cmd.Printf("servicectl %s\n", version)
			return nil
		},
	}
}
