package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/plugin"
	"github.com/HerbHall/stampd/internal/server"
	"github.com/HerbHall/stampd/internal/stamps"
	"github.com/HerbHall/stampd/internal/version"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the stampd HTTP API until SIGINT or SIGTERM.

Example:
  stampd serve --port 9090
  stampd serve --driver postgres --dsn "postgres://stampd@localhost/stampd?sslmode=disable"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "listen port")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("stampd server starting", version.Fields()...)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	registry := plugin.NewRegistry(logger)

	// Compile-time composition.
	plugins := []plugin.Plugin{
		stamps.New(st),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			return err
		}
	}

	if err := registry.InitAll(cfg); err != nil {
		return err
	}
	if err := registry.StartAll(ctx); err != nil {
		return err
	}
	defer registry.StopAll()

	srvOpts := server.OptionsFromConfig(cfg)
	srv := server.New(srvOpts, registry, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("stampd server ready", zap.String("addr", srvOpts.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvOpts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("stampd server stopped")
	return nil
}
