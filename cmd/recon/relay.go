package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/recon/internal/config"
	"github.com/mmcdole/recon/internal/log"
	"github.com/mmcdole/recon/internal/stream"
)

func newRelayCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve the terminal socket, executing commands in a pty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listen != "" {
				cfg.Relay.Listen = listen
			}
			return serveRelay(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides relay.listen)")
	return cmd
}

func serveRelay(ctx context.Context, cfg *config.Config) error {
	// The relay has no TUI, so it logs to stderr
	logger := log.New(os.Stderr, cfg.Logging.Level)

	relay := stream.NewRelay(
		stream.PTYExecutor{Shell: cfg.Relay.Shell, Dir: cfg.Relay.Dir},
		stream.WithRelayLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Relay.Path, relay)

	srv := &http.Server{
		Addr:              cfg.Relay.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", cfg.Relay.Listen, "path", cfg.Relay.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("relay shutting down")
	return srv.Shutdown(shutdownCtx)
}
