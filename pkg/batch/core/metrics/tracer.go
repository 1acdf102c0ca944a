package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing of the export run.
type Tracer interface {
	// StartRunSpan starts the root span of a run.
	//
	// Returns: A context carrying the span, and a function ending it.
	//          It is recommended to call the returned function in a defer statement.
	StartRunSpan(ctx context.Context, runID string) (context.Context, func())

	// StartStageSpan starts a child span for one stage of the run.
	StartStageSpan(ctx context.Context, stage string) (context.Context, func())

	// RecordError records an error in the current span.
	//
	// module: The component where the error occurred (e.g., "connector", "reader", "writer").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	//
	// attributes: Additional attributes, e.g. map[string]interface{}{"rows": 120}.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
