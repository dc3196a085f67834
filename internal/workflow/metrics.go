package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prompthub"

// Metrics instruments the engine. A nil *Metrics records nothing.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	active       prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_runs_total",
				Help:      "Total number of workflow runs by outcome",
			},
			[]string{"status"}, // status: success, failure, cancelled
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_duration_seconds",
				Help:      "Histogram of workflow run duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_steps_total",
				Help:      "Total number of workflow steps executed",
			},
			[]string{"model", "status"}, // status: success, error
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_step_duration_seconds",
				Help:      "Histogram of workflow step duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workflow_runs_active",
				Help:      "Number of workflow runs in progress",
			},
		),
	}

	reg.MustRegister(m.runs, m.runDuration, m.steps, m.stepDuration, m.active)
	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) runFinished(o *Outcome) {
	if m == nil {
		return
	}
	status := o.status()
	m.active.Dec()
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(o.TotalTime.Seconds())
}

func (m *Metrics) stepFinished(model string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	m.steps.WithLabelValues(model, status).Inc()
	m.stepDuration.WithLabelValues(model).Observe(d.Seconds())
}
