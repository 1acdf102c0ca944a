// Package app wires the store export into an Fx application.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/storemap/internal/job"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	coremetrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	inframetrics "github.com/tigerroll/storemap/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

const shutdownTimeout = 15 * time.Second

// Options returns every Fx option of the application. dbProviderOptions contribute the
// database providers to the "db_providers" group.
func Options(envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		coremetrics.Module,
		inframetrics.Module,

		fx.Options(dbProviderOptions...),
		gorm.Module,
		StorageModules,
		storage.Module,

		Module,
	)
}

// NewApp builds the Fx application and populates the job and the configuration.
func NewApp(envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option, exportJob **job.StoreExportJob, cfg **config.Config) *fx.App {
	return fx.New(
		Options(envFilePath, embeddedConfig, dbProviderOptions),
		fx.Populate(exportJob, cfg),
	)
}

// RunApplication starts the application, runs the export once and stops the application.
// The export error is returned only when storemap.job.fail_on_error is set; otherwise
// it is logged and the run counts as completed.
func RunApplication(ctx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) error {
	var (
		exportJob *job.StoreExportJob
		cfg       *config.Config
	)
	app := NewApp(envFilePath, embeddedConfig, dbProviderOptions, &exportJob, &cfg)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		logger.Infof("Application is shutting down.")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Errorf("Failed to stop application: %v", err)
		}
	}()

	_, err := exportJob.Run(ctx)
	if err == nil {
		return nil
	}
	if cfg.Storemap.Job.FailOnError {
		return err
	}
	logger.Warnf("Export finished with errors (fail_on_error is disabled): %v", err)
	return nil
}
