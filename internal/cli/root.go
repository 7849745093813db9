// Package cli implements the lepidoptera command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jacentio/lepidoptera/config"
)

// RootOptions holds global flags and the state they resolve to.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lepidoptera",
		Short: "Butterfly scoring service",
		Long:  "Stores butterflies, users and their 0-5 butterfly scores behind a JSON API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			opts.Config = cfg
			opts.Logger = cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
			slog.SetDefault(opts.Logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLambdaCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}
