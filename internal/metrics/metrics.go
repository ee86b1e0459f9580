// Package metrics provides Prometheus metrics for news search runs.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DeafMist/ai-news-radar/backend/internal/pipeline"
)

const namespace = "newsradar"

// Recorder records pipeline runs. It implements pipeline.Observer.
type Recorder struct {
	RunsTotal      *prometheus.CounterVec
	FailuresTotal  *prometheus.CounterVec
	DroppedRecords prometheus.Counter
	RunDuration    prometheus.Histogram
	ItemsReturned  *prometheus.HistogramVec
}

// New registers the run metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of search runs by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Total number of failed search runs by failure kind",
			},
			[]string{"kind"},
		),
		DroppedRecords: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_records_total",
				Help:      "Records dropped by validation",
			},
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of search runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		ItemsReturned: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "items_returned",
				Help:      "Distribution of items per settled run",
				Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 50},
			},
			[]string{"outcome"},
		),
	}
}

// RunSettled implements pipeline.Observer.
func (r *Recorder) RunSettled(_ context.Context, rep pipeline.Report) {
	outcome := string(rep.Outcome)
	r.RunsTotal.WithLabelValues(outcome).Inc()
	if rep.Kind != "" {
		r.FailuresTotal.WithLabelValues(rep.Kind).Inc()
	}
	r.DroppedRecords.Add(float64(rep.Dropped))
	r.RunDuration.Observe(rep.Duration.Seconds())
	r.ItemsReturned.WithLabelValues(outcome).Observe(float64(rep.Items))
}
