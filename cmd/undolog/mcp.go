package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes undo sessions and stored histories as MCP tools, so agents can list,
inspect, undo and redo model histories.

Supported Transports:
- stdio (default): JSON-RPC on standard input and output. Logs go to stderr.
- sse: Server-Sent Events over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		if transport != "stdio" && transport != "sse" {
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}

		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		// Nothing scrapes metrics here; the registry only keeps the hooks wired.
		manager := newSessionManager(b, prometheus.NewRegistry())
		srv := mcp.NewServer(manager, mcp.WithLogger(logger))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer closeSessions(context.WithoutCancel(ctx), manager)

		switch transport {
		case "sse":
			logger.Info("starting undolog MCP server (SSE)", "port", port)
			err = srv.ServeSSE(ctx, fmt.Sprintf(":%d", port), fmt.Sprintf("http://localhost:%d", port))
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
		default:
			logger.Info("starting undolog MCP server (stdio)")
			err = srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		logger.Info("MCP server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
