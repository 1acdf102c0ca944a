package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, runID string) {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordStageDuration(ctx context.Context, stage string, status string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordConnectionFailure(ctx context.Context) {}
func (r *NoOpMetricRecorder) RecordRowsFetched(ctx context.Context, count int) {}
func (r *NoOpMetricRecorder) RecordRowsDropped(ctx context.Context, reason string, count int) {}
func (r *NoOpMetricRecorder) RecordRecordsWritten(ctx context.Context, sourceName string, count int) {
}
func (r *NoOpMetricRecorder) Flush(ctx context.Context) error { return nil }

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartRunSpan returns ctx unchanged.
func (t *NoOpTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	return ctx, func() {}
}

// StartStageSpan returns ctx unchanged.
func (t *NoOpTracer) StartStageSpan(ctx context.Context, stage string) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
