package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the weight ledger module.
type Metrics struct {
	RecordsAssigned  prometheus.Counter
	RecordsCancelled prometheus.Counter
	SyncFailures     prometheus.Counter
	AssignDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all weight ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_weights_records_assigned_total",
			Help: "Total number of weight records created or updated by assignments",
		}),
		RecordsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_weights_records_cancelled_total",
			Help: "Total number of weight records cancelled",
		}),
		SyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_weights_sync_failures_total",
			Help: "Total number of recommendation sync failures that aborted a batch",
		}),
		AssignDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "backoffice_weights_assign_duration_seconds",
			Help:    "Duration of weight assignment batches including the sync call",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		}),
	}
}

// ObserveAssign records the duration of an AssignWeights operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAssign(start time.Time) {
	m.AssignDuration.Observe(time.Since(start).Seconds())
}
