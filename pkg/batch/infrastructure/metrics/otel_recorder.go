package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
)

// OTelMetricRecorder pushes run metrics to an OTLP collector.
// Flush forces an export so that a run ending right after does not lose its data points.
type OTelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	runs               otelmetric.Int64Counter
	runDuration        otelmetric.Float64Histogram
	stageDuration      otelmetric.Float64Histogram
	connectionFailures otelmetric.Int64Counter
	rowsFetched        otelmetric.Int64Counter
	rowsDropped        otelmetric.Int64Counter
	recordsWritten     otelmetric.Int64Counter
}

// NewOTelMetricRecorder builds a recorder for the OTLP exporter named by cfg.Exporter.
// It returns (nil, nil) when the exporter is "none".
func NewOTelMetricRecorder(ctx context.Context, cfg config.MetricsConfig, serviceName string) (*OTelMetricRecorder, error) {
	var exporter sdkmetric.Exporter
	switch strings.ToLower(cfg.Exporter) {
	case "", "none":
		return nil, nil
	case "otlphttp":
		var opts []otlpmetrichttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP/HTTP metric exporter: %w", err)
		}
		exporter = exp
	case "otlpgrpc":
		var opts []otlpmetricgrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP/gRPC metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.Exporter)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(serviceResource(serviceName)),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	return NewOTelMetricRecorderWithProvider(provider)
}

// NewOTelMetricRecorderWithProvider creates the instruments on an existing provider.
func NewOTelMetricRecorderWithProvider(provider *sdkmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{provider: provider}

	var err error
	if r.runs, err = meter.Int64Counter("storemap.runs",
		otelmetric.WithDescription("Export runs by status.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("storemap.run.duration",
		otelmetric.WithDescription("Duration of export runs."), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.stageDuration, err = meter.Float64Histogram("storemap.stage.duration",
		otelmetric.WithDescription("Duration of the stages of an export run."), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.connectionFailures, err = meter.Int64Counter("storemap.connection.failures",
		otelmetric.WithDescription("Failed attempts to reach the source database.")); err != nil {
		return nil, err
	}
	if r.rowsFetched, err = meter.Int64Counter("storemap.rows.fetched",
		otelmetric.WithDescription("Rows returned by the source query.")); err != nil {
		return nil, err
	}
	if r.rowsDropped, err = meter.Int64Counter("storemap.rows.dropped",
		otelmetric.WithDescription("Rows discarded during sanitization.")); err != nil {
		return nil, err
	}
	if r.recordsWritten, err = meter.Int64Counter("storemap.records.written",
		otelmetric.WithDescription("Store records exported.")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelMetricRecorder) RecordRunStart(ctx context.Context, runID string) {}

func (r *OTelMetricRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	r.runs.Add(ctx, 1, attrs)
	r.runDuration.Record(ctx, duration.Seconds(), attrs)
}

func (r *OTelMetricRecorder) RecordStageDuration(ctx context.Context, stage string, status string, duration time.Duration) {
	r.stageDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func (r *OTelMetricRecorder) RecordConnectionFailure(ctx context.Context) {
	r.connectionFailures.Add(ctx, 1)
}

func (r *OTelMetricRecorder) RecordRowsFetched(ctx context.Context, count int) {
	r.rowsFetched.Add(ctx, int64(count))
}

func (r *OTelMetricRecorder) RecordRowsDropped(ctx context.Context, reason string, count int) {
	r.rowsDropped.Add(ctx, int64(count), otelmetric.WithAttributes(attribute.String("reason", reason)))
}

func (r *OTelMetricRecorder) RecordRecordsWritten(ctx context.Context, sourceName string, count int) {
	r.recordsWritten.Add(ctx, int64(count), otelmetric.WithAttributes(attribute.String("source_name", sourceName)))
}

// Flush exports everything recorded so far.
func (r *OTelMetricRecorder) Flush(ctx context.Context) error {
	return r.provider.ForceFlush(ctx)
}

// Shutdown stops the periodic reader and the exporter.
func (r *OTelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)
