// Package metrics defines the observability contracts of the export run.
// Concrete backends live in infrastructure/metrics; the no-op implementations here
// are used when nothing else is configured and in tests.
package metrics

import (
	"context"
	"time"
)

// Run outcome labels.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MetricRecorder is an abstract interface for recording metrics of an export run.
type MetricRecorder interface {
	// RecordRunStart records that a run has started.
	//
	// ctx: The context for the operation.
	// runID: The unique id of the run.
	RecordRunStart(ctx context.Context, runID string)

	// RecordRunEnd records the outcome of a run.
	//
	// ctx: The context for the operation.
	// runID: The unique id of the run.
	// status: StatusCompleted or StatusFailed.
	// duration: Wall time of the whole run.
	RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration)

	// RecordStageDuration records how long one stage took.
	//
	// stage: The stage name (e.g., "connect", "fetch", "process", "write_records_json").
	// status: StatusCompleted or StatusFailed.
	RecordStageDuration(ctx context.Context, stage string, status string, duration time.Duration)

	// RecordConnectionFailure counts a failed attempt to reach the source database.
	RecordConnectionFailure(ctx context.Context)

	// RecordRowsFetched adds count to the number of rows returned by the source query.
	RecordRowsFetched(ctx context.Context, count int)

	// RecordRowsDropped adds count to the number of rows discarded for reason
	// (e.g., "invalid_coordinates").
	RecordRowsDropped(ctx context.Context, reason string, count int)

	// RecordRecordsWritten adds count to the number of exported records of one channel.
	RecordRecordsWritten(ctx context.Context, sourceName string, count int)

	// Flush persists the collected metrics, if the backend needs it.
	Flush(ctx context.Context) error
}
