package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/brandguard/internal/cli"
	"github.com/hyperjump/brandguard/internal/models"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

type searchOptions struct {
	k         int
	hints     bool
	serverURL string
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	so := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Screen a candidate logo against the reference set",
		Example: `  brandguard search candidate.png
  brandguard search -k 10 --output json candidate.jpg
  brandguard search --server http://localhost:8080 candidate.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return bgerr.Wrap(err, bgerr.CodeEncoderInputInvalid, "cannot read image", bgerr.FieldPath(args[0]))
			}
			if so.k < 0 {
				return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "k must be at least 1, got %d", so.k)
			}
			query := &models.SearchQuery{Image: data, K: so.k, Hints: so.hints}

			var response *models.SearchResponse
			if so.serverURL != "" {
				response, err = searchViaHTTP(cmd.Context(), so.serverURL, args[0], query)
			} else {
				response, err = searchDirect(cmd, opts, query)
			}
			if err != nil {
				return err
			}
			return cli.WriteSearchResponse(cmd.OutOrStdout(), response, format)
		},
	}
	cmd.Flags().IntVarP(&so.k, "k", "k", 0, "number of matches to return (default from config)")
	cmd.Flags().BoolVar(&so.hints, "hints", false, "ask Cloud Vision for brand hints (server must enable hints)")
	cmd.Flags().StringVar(&so.serverURL, "server", "", "server URL; empty searches the local snapshot directly")
	return cmd
}

func searchDirect(cmd *cobra.Command, opts *rootOptions, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, logger, err := opts.setup()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	if err := components.Catalog.Open(cmd.Context()); err != nil {
		return nil, err
	}
	return components.Engine.Search(cmd.Context(), query)
}
