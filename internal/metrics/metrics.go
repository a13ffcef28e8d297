// Package metrics holds the prometheus collectors of the bot. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "receipt_ledger"

type Metrics struct {
	updates            *prometheus.CounterVec
	actions            *prometheus.CounterVec
	extractions        *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	transportErrors    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Incoming chat updates by kind.",
		}, []string{"kind"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by kind.",
		}, []string{"action"}),
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Receipt extractions by result.",
		}, []string{"result"}),
		extractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent reading a receipt image, download included.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		transportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Failed calls to the messaging API by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Action(action string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
}

// Extraction records one finished extraction. result is "ok" or an error kind.
func (m *Metrics) Extraction(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(result).Inc()
	m.extractionDuration.Observe(took.Seconds())
}

func (m *Metrics) TransportError(op string) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(op).Inc()
}
