package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sony/gobreaker/v2"

	"itmScreener/internal/domain"
)

const namespace = "itm_screener"

// defaultBuckets are the histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds all Prometheus collectors of the screener. It implements ports.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	StageDuration *prometheus.HistogramVec
	SignalsTotal  *prometheus.CounterVec
	Candidates    *prometheus.GaugeVec
	Notifications *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "total",
				Help:      "Total number of screener runs by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Duration of screener runs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"symbol"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"stage"},
		),
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "signal",
				Name:      "total",
				Help:      "Total number of evaluated signals by kind",
			},
			[]string{"symbol", "kind"},
		),
		Candidates: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ranking",
				Name:      "candidates",
				Help:      "Number of ITM call candidates in the latest run",
			},
			[]string{"symbol"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notification",
				Name:      "total",
				Help:      "Total number of notification attempts by transport and result",
			},
			[]string{"transport", "result"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(symbol string, outcome domain.RunOutcome, duration time.Duration) {
	m.RunsTotal.WithLabelValues(symbol, string(outcome)).Inc()
	m.RunDuration.WithLabelValues(symbol).Observe(duration.Seconds())
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveSignal records an evaluated signal
func (m *Metrics) ObserveSignal(symbol string, kind domain.SignalKind) {
	m.SignalsTotal.WithLabelValues(symbol, string(kind)).Inc()
}

// ObserveCandidates sets the candidate count of the latest run
func (m *Metrics) ObserveCandidates(symbol string, count int) {
	m.Candidates.WithLabelValues(symbol).Set(float64(count))
}

// ObserveNotification records a delivery attempt
func (m *Metrics) ObserveNotification(transport, result string) {
	m.Notifications.WithLabelValues(transport, result).Inc()
}

// ObserveBreaker tracks breaker transitions. Its signature matches resilience.StateObserver.
func (m *Metrics) ObserveBreaker(name string, from, to gobreaker.State) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	if to == gobreaker.StateOpen {
		m.CircuitBreakerTrips.WithLabelValues(name).Inc()
	}
}

// Exporter flushes the registry after a run.
type Exporter struct {
	TextfilePath   string
	PushgatewayURL string
	Job            string
}

// Export writes the textfile and pushes to the gateway, whichever are configured.
func (e Exporter) Export(m *Metrics) error {
	if e.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(e.TextfilePath, m.registry); err != nil {
			return fmt.Errorf("write metrics textfile %s: %w", e.TextfilePath, err)
		}
	}
	if e.PushgatewayURL != "" {
		job := e.Job
		if job == "" {
			job = namespace
		}
		if err := push.New(e.PushgatewayURL, job).Gatherer(m.registry).Push(); err != nil {
			return fmt.Errorf("push metrics to %s: %w", e.PushgatewayURL, err)
		}
	}
	return nil
}
