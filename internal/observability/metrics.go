// Package observability provides Prometheus metrics for the swap bot.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Swap lifecycle
	SwapsCreated      *prometheus.CounterVec
	SwapsRejected     *prometheus.CounterVec
	SwapsFinished     *prometheus.CounterVec
	SwapsActive       prometheus.Gauge
	SwapDuration      prometheus.Histogram
	StatusTransitions *prometheus.CounterVec

	// Delivery
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec

	// Commands
	CommandsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coinkong"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SwapsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "created_total",
			Help:      "Total number of swaps created, by pair",
		}, []string{"pair"}),
		SwapsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "rejected_total",
			Help:      "Total number of swap requests rejected before creation, by reason",
		}, []string{"reason"}),
		SwapsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "finished_total",
			Help:      "Total number of swaps reaching a terminal status",
		}, []string{"status"}),
		SwapsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "active",
			Help:      "Number of swaps currently being processed",
		}),
		SwapDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "duration_seconds",
			Help:      "Time from swap creation to terminal status",
			Buckets:   []float64{1, 5, 10, 15, 20, 30, 60, 120},
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "transitions_total",
			Help:      "Total number of swap status transitions",
		}, []string{"from", "to"}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total number of notifications delivered",
		}, []string{"kind"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "failed_total",
			Help:      "Total number of notifications that could not be delivered",
		}, []string{"kind"}),

		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total number of bot commands handled",
		}, []string{"command", "outcome"}),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCommand counts one command invocation
func (m *Metrics) RecordCommand(command string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}
