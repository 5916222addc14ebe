package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks delivery outcomes per event type.
type Metrics struct {
	Published *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Queued    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restapidemo_events_published_total",
			Help: "Events handed to the publisher successfully",
		}, []string{"type"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restapidemo_events_failed_total",
			Help: "Events the publisher rejected",
		}, []string{"type"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restapidemo_events_dropped_total",
			Help: "Events dropped because the buffer was full or the worker had stopped",
		}, []string{"type", "reason"}),
		Queued: f.NewGauge(prometheus.GaugeOpts{
			Name: "restapidemo_events_queued",
			Help: "Events waiting in the worker buffer",
		}),
	}
}
