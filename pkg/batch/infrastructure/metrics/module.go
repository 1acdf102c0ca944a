package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	logger "github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// Module replaces the no-op MetricRecorder and Tracer of core/metrics.Module with
// the Prometheus textfile recorder, the optional OTLP metric recorder and the
// OpenTelemetry tracer. Exporters are shut down when the application stops.
var Module = fx.Options(
	fx.Decorate(decorateRecorder),
	fx.Decorate(decorateTracer),
)

func decorateRecorder(_ metrics.MetricRecorder, cfg *config.Config, lc fx.Lifecycle) (metrics.MetricRecorder, error) {
	sm := cfg.Storemap
	prom := NewPrometheusRecorder(sm.Metrics.TextfilePath)

	otlp, err := NewOTelMetricRecorder(context.Background(), sm.Metrics, sm.Tracing.ServiceName)
	if err != nil {
		return nil, err
	}
	if otlp == nil {
		return prom, nil
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debugf("Shutting down OTLP metric exporter.")
			return otlp.Shutdown(ctx)
		},
	})
	return NewMultiRecorder(prom, otlp), nil
}

func decorateTracer(_ metrics.Tracer, cfg *config.Config, lc fx.Lifecycle) (metrics.Tracer, error) {
	tracer, err := NewOpenTelemetryTracer(context.Background(), cfg.Storemap.Tracing)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tracer.Shutdown(ctx)
		},
	})
	return tracer, nil
}
