package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

const namespace = "undolog"

// Metrics collects replay counters for every stack it is attached to.
//
// Exposed metrics:
//   - undolog_replays_total{direction}: finished undo and redo steps.
//   - undolog_replay_records: records per replayed post.
//   - undolog_invalidations_total{reason}: history wipes, "divergence" when a reason was
//     reported and "reset" for silent clears.
//   - undolog_discarded_posts_total: posts lost to wipes.
type Metrics struct {
	replays      *prometheus.CounterVec
	records      prometheus.Histogram
	invalidation *prometheus.CounterVec
	discarded    prometheus.Counter
}

// NewMetrics registers the metrics with registry, or the default registerer when nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		replays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Undo and redo steps applied to documents.",
		}, []string{"direction"}),
		records: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_records",
			Help:      "Number of records in each replayed post.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 500},
		}),
		invalidation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Undo histories cleared.",
		}, []string{"reason"}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_posts_total",
			Help:      "Posts dropped by history clears.",
		}),
	}
}

func (m *Metrics) replayed(e *domain.ReplayEvent) {
	m.replays.WithLabelValues(string(e.Type)).Inc()
	m.records.Observe(float64(e.Records))
}

func (m *Metrics) invalidated(e *domain.InvalidateEvent) {
	reason := "reset"
	if e.Reason != "" {
		reason = "divergence"
	}
	m.invalidation.WithLabelValues(reason).Inc()
	m.discarded.Add(float64(e.Discarded))
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnUndo:       m.replayed,
		OnRedo:       m.replayed,
		OnInvalidate: m.invalidated,
	}
}

// LoggingHooks returns lifecycle hooks that log each event at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	replayed := func(e *domain.ReplayEvent) {
		logger.Info(string(e.Type),
			"post", e.Post,
			"label", e.Label,
			"records", e.Records,
			"position", e.Position,
		)
	}
	return domain.LifecycleHooks{
		OnUndo: replayed,
		OnRedo: replayed,
		OnInvalidate: func(e *domain.InvalidateEvent) {
			logger.Info("invalidate", "reason", e.Reason, "discarded", e.Discarded)
		},
	}
}

// Combine fans each event out to every non-nil hook in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnUndo: func(e *domain.ReplayEvent) {
			for _, h := range hooks {
				if h.OnUndo != nil {
					h.OnUndo(e)
				}
			}
		},
		OnRedo: func(e *domain.ReplayEvent) {
			for _, h := range hooks {
				if h.OnRedo != nil {
					h.OnRedo(e)
				}
			}
		},
		OnInvalidate: func(e *domain.InvalidateEvent) {
			for _, h := range hooks {
				if h.OnInvalidate != nil {
					h.OnInvalidate(e)
				}
			}
		},
	}
}
