package metrics

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
)

// MultiRecorder fans every observation out to several recorders.
type MultiRecorder struct {
	recorders []metrics.MetricRecorder
}

// NewMultiRecorder combines recorders. Nil entries are skipped.
func NewMultiRecorder(recorders ...metrics.MetricRecorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

func (m *MultiRecorder) RecordRunStart(ctx context.Context, runID string) {
	for _, r := range m.recorders {
		r.RecordRunStart(ctx, runID)
	}
}

func (m *MultiRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
	for _, r := range m.recorders {
		r.RecordRunEnd(ctx, runID, status, duration)
	}
}

func (m *MultiRecorder) RecordStageDuration(ctx context.Context, stage string, status string, duration time.Duration) {
	for _, r := range m.recorders {
		r.RecordStageDuration(ctx, stage, status, duration)
	}
}

func (m *MultiRecorder) RecordConnectionFailure(ctx context.Context) {
	for _, r := range m.recorders {
		r.RecordConnectionFailure(ctx)
	}
}

func (m *MultiRecorder) RecordRowsFetched(ctx context.Context, count int) {
	for _, r := range m.recorders {
		r.RecordRowsFetched(ctx, count)
	}
}

func (m *MultiRecorder) RecordRowsDropped(ctx context.Context, reason string, count int) {
	for _, r := range m.recorders {
		r.RecordRowsDropped(ctx, reason, count)
	}
}

func (m *MultiRecorder) RecordRecordsWritten(ctx context.Context, sourceName string, count int) {
	for _, r := range m.recorders {
		r.RecordRecordsWritten(ctx, sourceName, count)
	}
}

// Flush flushes every recorder, even when an earlier one fails.
func (m *MultiRecorder) Flush(ctx context.Context) error {
	var result *multierror.Error
	for _, r := range m.recorders {
		if err := r.Flush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ metrics.MetricRecorder = (*MultiRecorder)(nil)
