package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/server"
	"github.com/hyperjump/brandguard/internal/watcher"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(parent context.Context, opts *rootOptions) error {
	cfg, _, logger, err := opts.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Catalog.Open(ctx); err != nil {
		return err
	}

	if cfg.Watch.EnabledOrDefault() {
		cat := components.Catalog
		w := watcher.NewWatcher(cfg.Catalog.LogosDir,
			func(ctx context.Context) {
				report, err := cat.Rebuild(ctx)
				if err != nil {
					logger.Error("rebuild after directory change failed", zap.Error(err))
					return
				}
				logger.Info("rebuilt after directory change",
					zap.String("version", report.Version),
					zap.Int("indexed", report.Indexed),
					zap.Int("skipped", report.Skipped))
			},
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(components.Engine, components.Catalog, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
