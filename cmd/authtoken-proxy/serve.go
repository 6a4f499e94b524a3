package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}

	cmd.Flags().String("server-port", "", "Port to listen on")
	cmd.Flags().String("server-upstream", "", "Base URL requests are forwarded to")
	cmd.Flags().String("server-admin-key", "", "Key required by the admin API and the proxy route")
	cmd.Flags().Duration("refresh-interval", 0, "Renew ahead of expiry on this interval (0 disables)")

	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	a := c.app
	log := a.Logger

	if _, err := a.Seed(ctx); err != nil {
		log.Error().Err(err).Msg("⚠️  Failed to seed auth tokens")
	}
	a.LogStartupStatus(ctx)

	srv, err := a.NewServer()
	if err != nil {
		return err
	}

	if interval := a.Config.Refresh.Interval; interval > 0 {
		log.Info().Dur("interval", interval).Msg("🔄 Background token refresh enabled")
		go a.Coordinator.Watch(ctx, interval, a.Renew)
	}

	httpServer := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", a.Config.Server.Port).
			Str("upstream", a.Config.Server.Upstream).
			Msg("Starting server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error().Err(err).Msg("Server failed")
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
