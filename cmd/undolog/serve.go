package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	undolog "github.com/Hopsan/hopsan-sub008"
	httpAdapter "github.com/Hopsan/hopsan-sub008/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the undo session HTTP server",
	Long: `Serves undo sessions, stored histories and Prometheus metrics as a JSON API.
Sessions opened over HTTP are bound to in-memory documents and are saved on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTP.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}

		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		registry := prometheus.NewRegistry()
		manager := newSessionManager(b, registry)

		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(manager,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithMetrics(registry),
				httpAdapter.WithVersion(strings.TrimSpace(undolog.Version)),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting undolog server", "addr", srv.Addr, "backend", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			closeSessions(ctx, manager)
			logger.Info("undolog server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overrides http.addr")
}
