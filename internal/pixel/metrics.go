package pixel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts dispatch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	handledTotal *prometheus.CounterVec
	droppedTotal *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		handledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixel_events_handled_total",
				Help: "Events mapped and emitted to the output queue.",
			},
			[]string{"event"},
		),
		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixel_events_dropped_total",
				Help: "Events dropped at the failure boundary.",
			},
			[]string{"event", "reason"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pixel_handler_duration_seconds",
				Help:    "Time spent decoding, mapping and emitting one event.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(m.handledTotal, m.droppedTotal, m.latency)
	return m
}

func (m *Metrics) handled(event string) {
	if m == nil {
		return
	}
	m.handledTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) dropped(event, reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) observe(event string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(event).Observe(d.Seconds())
}
