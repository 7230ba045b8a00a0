// Package metrics holds the Prometheus collectors for dmbot and the small
// HTTP listener that exposes them.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	namespace        string
	registry         prometheus.Registerer
	armedActions     prometheus.Gauge
	firingsTotal     *prometheus.CounterVec
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	skippedRecords   prometheus.Counter
	commandsTotal    *prometheus.CounterVec
	purgedRows       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg (the default
// registerer when reg is nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		namespace: namespace,
		registry:  reg,
		armedActions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "armed_actions",
				Help:      "Number of actions currently armed by the scheduler",
			},
		),
		firingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "firings_total",
				Help:      "Scheduled action firings by kind and result",
			},
			[]string{"kind", "result"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Direct message delivery attempts by status",
			},
			[]string{"status"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_duration_seconds",
				Help:      "Duration of direct message delivery attempts",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		skippedRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_records_total",
				Help:      "Stored actions skipped at load because they could not be parsed",
			},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Chat commands handled by command and result",
			},
			[]string{"command", "result"},
		),
		purgedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purged_rows_total",
				Help:      "Rows removed by the maintenance job",
			},
			[]string{"table"},
		),
	}

	reg.MustRegister(
		m.armedActions,
		m.firingsTotal,
		m.deliveriesTotal,
		m.deliveryDuration,
		m.skippedRecords,
		m.commandsTotal,
		m.purgedRows,
	)

	return m
}

func (m *Metrics) SetArmed(n int) {
	if m == nil {
		return
	}
	m.armedActions.Set(float64(n))
}

func (m *Metrics) RecordFiring(kind, result string) {
	if m == nil {
		return
	}
	m.firingsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordDelivery(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(status).Inc()
	m.deliveryDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.skippedRecords.Inc()
}

func (m *Metrics) RecordCommand(command, result string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, result).Inc()
}

func (m *Metrics) RecordPurged(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedRows.WithLabelValues(table).Add(float64(n))
}
