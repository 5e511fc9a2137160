package metrics

import (
	"time"

	"github.com/barstock/backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportRecorder exports reconciliation telemetry to prometheus
type ImportRecorder struct {
	rows     *prometheus.CounterVec
	runs     *prometheus.CounterVec
	flushes  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewImportRecorder registers the import metrics on reg.
// A nil reg uses the default prometheus registry.
func NewImportRecorder(reg prometheus.Registerer) *ImportRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &ImportRecorder{
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barstock_import_rows_total",
				Help: "Total number of source rows reconciled, by outcome",
			},
			[]string{"action"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barstock_import_runs_total",
				Help: "Total number of import runs, by terminal status",
			},
			[]string{"status"},
		),
		flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barstock_import_flushes_total",
				Help: "Total number of catalog batch writes, by result",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "barstock_import_run_duration_seconds",
				Help:    "Duration of import runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
	}
}

// RowProcessed counts one reconciled row
func (r *ImportRecorder) RowProcessed(action domain.ImportAction) {
	r.rows.WithLabelValues(string(action)).Inc()
}

// FlushCompleted counts one batch write
func (r *ImportRecorder) FlushCompleted(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.flushes.WithLabelValues(status).Inc()
}

// RunFinished counts a run and observes its duration
func (r *ImportRecorder) RunFinished(status domain.RunStatus, duration time.Duration) {
	r.runs.WithLabelValues(string(status)).Inc()
	r.duration.Observe(duration.Seconds())
}
