package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/service/pipeline"
)

// Registry owns the order pipeline collectors. It implements pipeline.Recorder.
type Registry struct {
	reg         *prometheus.Registry
	Runs        prometheus.Counter
	RunFailures *prometheus.CounterVec
	RowsOut     prometheus.Counter
	OrderLines  prometheus.Counter
	Warnings    *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

var _ pipeline.Recorder = (*Registry)(nil)

// NewRegistry creates a private prometheus registry holding the pipeline
// run counters and the run duration histogram.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "apexorder_runs_total", Help: "Completed pipeline runs."})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apexorder_run_failures_total",
		Help: "Pipeline runs aborted, by reason.",
	}, []string{"reason"})
	rowsOut := prometheus.NewCounter(prometheus.CounterOpts{Name: "apexorder_rows_out_total", Help: "Reconciled rows produced."})
	orderLines := prometheus.NewCounter(prometheus.CounterOpts{Name: "apexorder_order_lines_total", Help: "Rows with a non-zero order quantity."})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apexorder_warnings_total",
		Help: "Non-fatal pipeline warnings, by code.",
	}, []string{"code"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apexorder_run_duration_seconds",
		Help:    "Wall time of successful pipeline runs.",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(runs, failures, rowsOut, orderLines, warnings, duration)
	return &Registry{
		reg:         r,
		Runs:        runs,
		RunFailures: failures,
		RowsOut:     rowsOut,
		OrderLines:  orderLines,
		Warnings:    warnings,
		RunDuration: duration,
	}
}

// ObserveRun records a successful run.
func (r *Registry) ObserveRun(summary pipeline.Summary, warnings []models.Warning, elapsed time.Duration) {
	r.Runs.Inc()
	r.RowsOut.Add(float64(summary.CatalogRecords))
	r.OrderLines.Add(float64(summary.OrderLines))
	for _, w := range warnings {
		r.Warnings.WithLabelValues(string(w.Code)).Inc()
	}
	r.RunDuration.Observe(elapsed.Seconds())
}

// RunFailed records an aborted run.
func (r *Registry) RunFailed(reason string) {
	r.RunFailures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
