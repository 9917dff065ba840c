package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lander"
	"github.com/aretw0/lander/internal/config"
	"github.com/aretw0/lander/pkg/adapters/mcp"
	"github.com/aretw0/lander/pkg/observability"
	"github.com/aretw0/lander/pkg/session"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes funnel sessions as MCP tools so AI agents can start a funnel, answer
its questions and read the result.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cfg, logger, err := open(cmd, func(cfg config.Config, logger *slog.Logger) []lander.Option {
			return []lander.Option{
				lander.WithLifecycleHooks(observability.LogHooks(logger)),
				lander.WithSessionOptions(
					session.WithIdleTTL(cfg.IdleTTL),
					session.WithMaxSessions(cfg.MaxSessions),
					session.WithDefaultPhone(cfg.DefaultPhone),
				),
			}
		})
		if err != nil {
			return err
		}
		defer l.Close()

		transport, _ := cmd.Flags().GetString("transport")
		port := cfg.MCPPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		srv := mcp.NewServer(l.Manager(), mcp.WithLogger(logger), mcp.WithVersion(lander.Version))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting lander MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting lander MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on, only for SSE (env LANDER_MCP_PORT)")
}
