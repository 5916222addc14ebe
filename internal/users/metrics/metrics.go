package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as the "operation" label.
const (
	OpCreate = "create"
	OpList   = "list"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Metrics provides observability for the users module.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// New registers the users metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restapidemo_user_operations_total",
			Help: "User operations by outcome (ok or the error code)",
		}, []string{"operation", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restapidemo_user_operation_duration_seconds",
			Help:    "Duration of user service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// Observe records one operation. Call with time.Now() taken at the start.
func (m *Metrics) Observe(op, outcome string, start time.Time) {
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
