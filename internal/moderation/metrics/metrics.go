package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the moderation module.
type Metrics struct {
	ItemsApproved      prometheus.Counter
	ItemsRejected      prometheus.Counter
	SiblingsDeleted    prometheus.Counter
	SideEffectFailures prometheus.Counter
	DecideDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all moderation metrics registered.
func New() *Metrics {
	return &Metrics{
		ItemsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_moderation_items_approved_total",
			Help: "Total number of moderation items approved",
		}),
		ItemsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_moderation_items_rejected_total",
			Help: "Total number of moderation items rejected",
		}),
		SiblingsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_moderation_siblings_deleted_total",
			Help: "Total number of sibling items removed by rejection fan-out",
		}),
		SideEffectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_moderation_side_effect_failures_total",
			Help: "Total number of failed post-commit side effects (notify, publish)",
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "backoffice_moderation_decide_duration_seconds",
			Help:    "Duration of Decide operations including the store transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveDecide records the duration of a Decide operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}
