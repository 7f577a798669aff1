package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/brandguard/internal/cli"
	"github.com/hyperjump/brandguard/internal/models"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show snapshot, storage and configuration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			var st *models.Status
			if serverURL != "" {
				st, err = statusViaHTTP(cmd.Context(), serverURL)
			} else {
				st, err = statusDirect(cmd, opts)
			}
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL; empty reads the local snapshot directly")
	return cmd
}

// statusDirect loads the persisted snapshot without rebuilding it.
func statusDirect(cmd *cobra.Command, opts *rootOptions) (*models.Status, error) {
	cfg, _, logger, err := opts.setup()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	off := false
	cfg.Catalog.BuildOnStart = &off
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	if err := components.Catalog.Open(cmd.Context()); err != nil {
		return nil, err
	}
	return components.Catalog.Status(), nil
}
