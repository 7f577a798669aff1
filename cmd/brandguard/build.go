package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/brandguard/internal/cli"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the reference snapshot from the logos directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			cfg, _, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			components, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			report, err := components.Catalog.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteReport(cmd.OutOrStdout(), report, format)
		},
	}
}
