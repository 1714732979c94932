package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hopsan/hopsan-sub008/pkg/observability"
	"github.com/Hopsan/hopsan-sub008/pkg/session"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

// newSessionManager builds the manager shared by the serve and mcp commands. Every stack
// it opens logs through the root logger and reports to registry.
func newSessionManager(b *backend, registry prometheus.Registerer) *session.Manager {
	metrics := observability.NewMetrics(registry)
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithStackOptions(
			undo.WithLogger(logger),
			undo.WithLifecycleHooks(observability.Combine(
				metrics.Hooks(),
				observability.LoggingHooks(logger),
			)),
		),
	}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(b.Store, opts...)
}

// closeSessions saves and closes whatever is still open.
func closeSessions(ctx context.Context, manager *session.Manager) {
	for _, id := range manager.OpenIDs() {
		if err := manager.Close(ctx, id); err != nil {
			logger.Warn("failed to save session on exit", "document_id", id, "err", err)
		}
	}
}
