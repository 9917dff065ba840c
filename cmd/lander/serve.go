package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lander"
	"github.com/aretw0/lander/internal/config"
	httpAdapter "github.com/aretw0/lander/pkg/adapters/http"
	"github.com/aretw0/lander/pkg/observability"
	"github.com/aretw0/lander/pkg/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves funnel sessions over a JSON API with server-sent events, Prometheus metrics and Swagger UI.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics := observability.NewMetrics()
		l, cfg, logger, err := open(cmd, func(cfg config.Config, logger *slog.Logger) []lander.Option {
			return []lander.Option{
				lander.WithLifecycleHooks(metrics.Hooks()),
				lander.WithLifecycleHooks(observability.LogHooks(logger)),
				lander.WithSessionOptions(
					session.WithIdleTTL(cfg.IdleTTL),
					session.WithMaxSessions(cfg.MaxSessions),
					session.WithDefaultPhone(cfg.DefaultPhone),
					session.WithExternalTicks(cfg.ExternalTicks),
				),
			}
		})
		if err != nil {
			return err
		}
		defer l.Close()
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("refusing to serve invalid funnels: %w", err)
		}
		metrics.TrackLiveSessions(l.Manager().Len)

		handler, err := httpAdapter.NewHandler(l.Manager(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithVersion(lander.Version),
		)
		if err != nil {
			return err
		}

		srv := httpAdapter.NewServer(cfg.Addr, handler, l.Manager())

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting lander server", "addr", srv.Addr, "scripts", l.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String(), "sessions", l.Manager().Len())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("Lander server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (env LANDER_ADDR)")
}
