// Package job orchestrates one export run: connect, fetch, process, write.
package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/render"
	"github.com/tigerroll/storemap/internal/step/processor"
	"github.com/tigerroll/storemap/internal/step/writer"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

const moduleName = "job"

// Connector opens the source connection. A nil connection means no data is available.
type Connector interface {
	Connect(ctx context.Context) (database.DBConnection, error)
}

// Fetcher runs the store location query.
type Fetcher interface {
	Fetch(ctx context.Context, exec database.DBExecutor, channelIDs []int) ([]model.RawStoreRow, error)
}

// RecordsWriter writes the primary records artifact.
type RecordsWriter interface {
	writer.RecordWriter
	// EnsureExists creates an empty artifact unless one is already present.
	EnsureExists(ctx context.Context) error
}

// ConfigWriter writes the front-end configuration.
type ConfigWriter interface {
	Write(ctx context.Context) error
}

// Dependencies are the collaborators of a StoreExportJob.
type Dependencies struct {
	Connector Connector
	Fetcher   Fetcher
	Processor *processor.StoreRecordProcessor
	Channels  *model.ChannelConfig
	Records   RecordsWriter
	// Writers are the optional artifacts (map, parquet), run in order after Records.
	Writers  []writer.RecordWriter
	Frontend ConfigWriter
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID       string
	Connected   bool
	RowsFetched int
	Stats       processor.ProcessStats
	Legend      []render.LegendEntry
	CenterLat   float64
	CenterLon   float64
	HasCentroid bool
	// Written lists the artifacts written successfully, by writer name.
	Written  []string
	Duration time.Duration
}

// StoreExportJob exports the store locations once per Run call.
type StoreExportJob struct {
	deps Dependencies
}

// NewStoreExportJob creates a new StoreExportJob. Nil metric recorder and tracer are replaced by no-ops.
func NewStoreExportJob(deps Dependencies) *StoreExportJob {
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if deps.Tracer == nil {
		deps.Tracer = metrics.NewNoOpTracer()
	}
	return &StoreExportJob{deps: deps}
}

// Run performs the export. Stages run strictly one after another.
//
// A missing connection does not stop the run: the records artifact is kept if it exists
// (or created empty) and the front-end configuration is still written. A failing writer
// does not prevent the others from running. Every failure is logged and included in the
// returned error; the summary is returned in all cases.
func (j *StoreExportJob) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: uuid.NewString()}

	ctx, endRun := j.deps.Tracer.StartRunSpan(ctx, summary.RunID)
	defer endRun()
	j.deps.Recorder.RecordRunStart(ctx, summary.RunID)
	logger.Infof("Store export run %s started.", summary.RunID)

	var result *multierror.Error

	var conn database.DBConnection
	err := j.stage(ctx, "connect", func(ctx context.Context) error {
		var cerr error
		conn, cerr = j.deps.Connector.Connect(ctx)
		return cerr
	})
	if err == nil && conn == nil {
		err = fmt.Errorf("connector returned no connection")
	}
	if err != nil {
		logger.Errorf("Could not connect to the source database: %v", err)
		j.deps.Recorder.RecordConnectionFailure(ctx)
		result = multierror.Append(result, exception.NewBatchError(moduleName, "no connection to the source database",
			fmt.Errorf("%w: %v", exception.ErrNoConnection, err)))
		conn = nil
	}

	if conn == nil {
		if err := j.stage(ctx, "write_"+j.deps.Records.Name(), j.deps.Records.EnsureExists); err != nil {
			logger.Errorf("Failed to prepare records artifact: %v", err)
			result = multierror.Append(result, err)
		}
	} else {
		summary.Connected = true
		records := j.export(ctx, conn, summary, &result)
		j.summarize(summary, records)
	}

	if err := j.stage(ctx, "write_frontend_config", j.deps.Frontend.Write); err != nil {
		logger.Errorf("Failed to write front-end configuration: %v", err)
		result = multierror.Append(result, err)
	}

	summary.Duration = time.Since(start)
	status := metrics.StatusCompleted
	if result.ErrorOrNil() != nil {
		status = metrics.StatusFailed
	}
	j.deps.Recorder.RecordRunEnd(ctx, summary.RunID, status, summary.Duration)
	if err := j.deps.Recorder.Flush(ctx); err != nil {
		logger.Warnf("Failed to flush run metrics: %v", err)
	}

	j.logSummary(summary, status)
	return summary, result.ErrorOrNil()
}

func (j *StoreExportJob) export(ctx context.Context, conn database.DBConnection, summary *RunSummary, result **multierror.Error) []model.StoreRecord {
	var rows []model.RawStoreRow
	err := j.stage(ctx, "fetch", func(ctx context.Context) error {
		var ferr error
		rows, ferr = j.deps.Fetcher.Fetch(ctx, conn, j.deps.Channels.IDs())
		return ferr
	})
	if err != nil {
		*result = multierror.Append(*result, err)
		rows = nil
	}
	if cerr := conn.Close(); cerr != nil {
		logger.Warnf("Failed to close source connection '%s': %v", conn.Name(), cerr)
	}
	summary.RowsFetched = len(rows)
	j.deps.Recorder.RecordRowsFetched(ctx, len(rows))

	var records []model.StoreRecord
	_ = j.stage(ctx, "process", func(ctx context.Context) error {
		records, summary.Stats = j.deps.Processor.Process(rows)
		return nil
	})
	j.deps.Recorder.RecordRowsDropped(ctx, processor.DropReasonInvalidCoordinates, summary.Stats.Dropped)
	j.deps.Tracer.RecordEvent(ctx, "records_processed", map[string]interface{}{
		"rows":    summary.Stats.Read,
		"kept":    summary.Stats.Kept,
		"dropped": summary.Stats.Dropped,
	})

	writers := append([]writer.RecordWriter{j.deps.Records}, j.deps.Writers...)
	for i, w := range writers {
		if err := j.stage(ctx, "write_"+w.Name(), func(ctx context.Context) error {
			return w.Write(ctx, records)
		}); err != nil {
			logger.Errorf("Writer '%s' failed: %v", w.Name(), err)
			*result = multierror.Append(*result, err)
			continue
		}
		summary.Written = append(summary.Written, w.Name())
		if i == 0 {
			for _, entry := range render.Legend(records) {
				j.deps.Recorder.RecordRecordsWritten(ctx, entry.Name, entry.Count)
			}
		}
	}
	return records
}

// stage runs fn under its own span and records its duration.
func (j *StoreExportJob) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	stageCtx, end := j.deps.Tracer.StartStageSpan(ctx, name)
	defer end()

	start := time.Now()
	err := fn(stageCtx)
	status := metrics.StatusCompleted
	if err != nil {
		status = metrics.StatusFailed
		j.deps.Tracer.RecordError(stageCtx, name, err)
	}
	j.deps.Recorder.RecordStageDuration(ctx, name, status, time.Since(start))
	return err
}

func (j *StoreExportJob) summarize(summary *RunSummary, records []model.StoreRecord) {
	summary.Legend = render.Legend(records)
	summary.CenterLat, summary.CenterLon, summary.HasCentroid = render.Centroid(records)
}

func (j *StoreExportJob) logSummary(summary *RunSummary, status string) {
	if !summary.Connected {
		logger.Infof("Store export run %s %s in %v without source data.", summary.RunID, status, summary.Duration)
		return
	}
	counts := make([]string, 0, len(summary.Legend))
	for _, e := range summary.Legend {
		counts = append(counts, fmt.Sprintf("%s: %d", e.Name, e.Count))
	}
	logger.Infof("Store export run %s %s in %v: %d rows fetched, %d records kept, %d dropped [%s].",
		summary.RunID, status, summary.Duration, summary.RowsFetched, summary.Stats.Kept, summary.Stats.Dropped, strings.Join(counts, ", "))
	if summary.HasCentroid {
		logger.Infof("Store centroid: %.4f, %.4f.", summary.CenterLat, summary.CenterLon)
	}
}
