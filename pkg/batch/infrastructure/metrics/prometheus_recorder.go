package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	logger "github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

const namespace = "storemap"

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// The run is a short-lived process, so instead of serving /metrics the registry is written
// to a textfile that a node_exporter textfile collector can pick up.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	textfilePath string

	// Run Metrics
	runTotal          *prometheus.CounterVec
	runDuration       prometheus.Histogram
	lastRunTimestamp  *prometheus.GaugeVec
	connectionFailure prometheus.Counter

	// Stage Metrics
	stageDuration *prometheus.HistogramVec

	// Row Metrics
	rowsFetched    prometheus.Counter
	rowsDropped    *prometheus.CounterVec
	recordsWritten *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
// Go runtime and process collectors are not registered; their values would be
// stale the moment the textfile is written.
//
// Parameters:
//
//	textfilePath: Destination of Flush. Empty disables the textfile.
func NewPrometheusRecorder(textfilePath string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		registry:     registry,
		textfilePath: textfilePath,
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_total",
			Help:      "Total number of export runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of export runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRunTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished, by status.",
		}, []string{"status"}),
		connectionFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_failures_total",
			Help:      "Total number of failed attempts to reach the source database.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the stages of an export run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		rowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_fetched_total",
			Help:      "Total rows returned by the source query.",
		}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Total rows discarded during sanitization, by reason.",
		}, []string{"reason"}),
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Total store records exported, by channel name.",
		}, []string{"source_name"}),
	}

	registry.MustRegister(
		r.runTotal,
		r.runDuration,
		r.lastRunTimestamp,
		r.connectionFailure,
		r.stageDuration,
		r.rowsFetched,
		r.rowsDropped,
		r.recordsWritten,
	)

	return r
}

// Registry exposes the underlying registry, e.g. for a push gateway or tests.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart logs the start of a run. Runs are counted when they end.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, runID string) {
	logger.Debugf("Prometheus: run '%s' started.", runID)
}

func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
	r.runTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration.Seconds())
	r.lastRunTimestamp.WithLabelValues(status).SetToCurrentTime()
}

func (r *PrometheusRecorder) RecordStageDuration(ctx context.Context, stage string, status string, duration time.Duration) {
	r.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordConnectionFailure(ctx context.Context) {
	r.connectionFailure.Inc()
}

func (r *PrometheusRecorder) RecordRowsFetched(ctx context.Context, count int) {
	if count > 0 {
		r.rowsFetched.Add(float64(count))
	}
}

func (r *PrometheusRecorder) RecordRowsDropped(ctx context.Context, reason string, count int) {
	if count > 0 {
		r.rowsDropped.WithLabelValues(reason).Add(float64(count))
	}
}

func (r *PrometheusRecorder) RecordRecordsWritten(ctx context.Context, sourceName string, count int) {
	if count > 0 {
		r.recordsWritten.WithLabelValues(sourceName).Add(float64(count))
	}
}

// Flush writes the registry to the textfile, if one is configured.
// The file is replaced atomically by prometheus.WriteToTextfile.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.textfilePath == "" {
		return nil
	}
	if dir := filepath.Dir(r.textfilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics textfile directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile '%s': %w", r.textfilePath, err)
	}
	logger.Debugf("Prometheus: metrics written to %s.", r.textfilePath)
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
