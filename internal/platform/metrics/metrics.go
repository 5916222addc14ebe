package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. Each runtime instance owns its registry so tests can build
// several without duplicate registration panics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// HTTP holds transport level metrics.
type HTTP struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	PanicsTotal     prometheus.Counter
}

// NewHTTP creates and registers the HTTP metrics on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restapidemo_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restapidemo_http_requests_total",
			Help: "Total number of HTTP requests by route pattern",
		}, []string{"method", "route", "status"}),
		PanicsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "restapidemo_http_panics_total",
			Help: "Handler panics recovered by middleware",
		}),
	}
}

// ObserveRequest records one finished request.
// Call with time.Now() taken before the handler ran.
func (m *HTTP) ObserveRequest(method, route string, status int, start time.Time) {
	code := strconv.Itoa(status)
	m.RequestDuration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
	m.RequestsTotal.WithLabelValues(method, route, code).Inc()
}
