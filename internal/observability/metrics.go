package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "mlprep"

// Metrics holds the step metrics of a single run. Each run has its own
// registry so the values pushed describe that run only.
type Metrics struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	rowsLoaded   prometheus.Gauge
	splitRows    *prometheus.GaugeVec
}

// NewMetrics creates the step metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of a pipeline step",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		stepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Number of failed pipeline steps",
		}, []string{"step"}),
		rowsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows in the raw table after import",
		}),
		splitRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "split_rows",
			Help:      "Rows per partition after split",
		}, []string{"split"}),
	}
}

// Registry returns the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStep records the duration of step since start, and a failure when
// err is non-nil.
func (m *Metrics) ObserveStep(step string, start time.Time, err error) {
	m.stepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	if err != nil {
		m.stepFailures.WithLabelValues(step).Inc()
	}
}

// RecordImport records the loaded row count.
func (m *Metrics) RecordImport(rows int64) {
	m.rowsLoaded.Set(float64(rows))
}

// RecordSplit records the partition sizes.
func (m *Metrics) RecordSplit(partitions map[string]int64) {
	for split, n := range partitions {
		m.splitRows.WithLabelValues(split).Set(float64(n))
	}
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = namespace
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
