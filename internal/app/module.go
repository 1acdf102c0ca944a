package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/job"
	"github.com/tigerroll/storemap/internal/render"
	"github.com/tigerroll/storemap/internal/step/processor"
	"github.com/tigerroll/storemap/internal/step/reader"
	"github.com/tigerroll/storemap/internal/step/writer"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// DBProviderMap is used by main.go to select database providers.
var DBProviderMap = map[string]func(cfg *config.Config) database.DBProvider{
	"postgres": postgres.NewProvider, // also serves redshift
	"mysql":    mysql.NewProvider,
	"sqlite":   sqlite.NewProvider,
}

// StorageModules are the storage providers available to the export.
var StorageModules = fx.Options(
	local.Module,
	gcs.Module,
)

// NewChannelConfig builds the channel table from the configuration.
func NewChannelConfig(cfg *config.Config) (*model.ChannelConfig, error) {
	entries := cfg.Storemap.Channels
	channels := make([]model.Channel, len(entries))
	for i, e := range entries {
		channels[i] = model.Channel{ID: e.ID, Name: e.Name, Color: e.Color}
	}
	cc, err := model.NewChannelConfig(channels)
	if err != nil {
		return nil, exception.NewBatchError("app", "invalid channel table", fmt.Errorf("%w: %v", exception.ErrInvalidConfig, err))
	}
	logger.Debugf("Channel table loaded with %d entries: %v", cc.Len(), cc.IDs())
	return cc, nil
}

// NewOutputStorage resolves the storage connection all artifacts are written through.
func NewOutputStorage(resolver storage.StorageConnectionResolver, cfg *config.Config) (storage.StorageConnection, error) {
	ref := cfg.Storemap.Output.StorageRef
	conn, err := resolver.ResolveStorageConnection(context.Background(), ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output storage '%s': %w", ref, err)
	}
	logger.Debugf("Artifacts are written through storage '%s' (%s).", ref, conn.Type())
	return conn, nil
}

// NewOptionalWriters returns the enabled optional artifacts in their fixed order: map, parquet.
func NewOptionalWriters(cfg *config.Config, store storage.StorageConnection) ([]writer.RecordWriter, error) {
	out := cfg.Storemap.Output
	var writers []writer.RecordWriter
	if out.Map.Enabled {
		renderer := render.NewStoreMapRenderer(render.MapOptions{Title: out.Map.Title, Zoom: out.Map.Zoom})
		writers = append(writers, writer.NewMapHTMLWriter(store, out.Map.Path, renderer))
	}
	if out.Parquet.Enabled {
		pw, err := writer.NewStoreParquetWriter(store, out.Parquet.Path, out.Parquet.Compression)
		if err != nil {
			return nil, err
		}
		writers = append(writers, pw)
	}
	return writers, nil
}

// JobParams are the Fx dependencies of NewStoreExportJob.
type JobParams struct {
	fx.In
	Cfg       *config.Config
	Connector *reader.SourceConnector
	Reader    *reader.StoreLocationReader
	Processor *processor.StoreRecordProcessor
	Channels  *model.ChannelConfig
	Store     storage.StorageConnection
	Writers   []writer.RecordWriter
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
}

// NewStoreExportJob assembles the export job.
func NewStoreExportJob(p JobParams) *job.StoreExportJob {
	sm := p.Cfg.Storemap
	return job.NewStoreExportJob(job.Dependencies{
		Connector: p.Connector,
		Fetcher:   p.Reader,
		Processor: p.Processor,
		Channels:  p.Channels,
		Records:   writer.NewRecordsJSONWriter(p.Store, sm.Output.RecordsPath),
		Writers:   p.Writers,
		Frontend:  writer.NewFrontendConfigWriter(p.Store, sm.Frontend.Path, sm.Frontend.APIKey),
		Recorder:  p.Recorder,
		Tracer:    p.Tracer,
	})
}

// Module provides the export job and its components.
var Module = fx.Options(
	fx.Provide(NewChannelConfig),
	fx.Provide(NewOutputStorage),
	fx.Provide(NewOptionalWriters),
	fx.Provide(func(resolver database.DBConnectionResolver, cfg *config.Config) *reader.SourceConnector {
		return reader.NewSourceConnector(resolver, cfg.Storemap.Source)
	}),
	fx.Provide(func(cfg *config.Config) (*reader.StoreLocationReader, error) {
		return reader.NewStoreLocationReader(cfg.Storemap.Source)
	}),
	fx.Provide(processor.NewStoreRecordProcessor),
	fx.Provide(NewStoreExportJob),
)
