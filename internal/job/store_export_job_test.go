package job_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/job"
	"github.com/tigerroll/storemap/internal/render"
	"github.com/tigerroll/storemap/internal/step/processor"
	"github.com/tigerroll/storemap/internal/step/reader"
	"github.com/tigerroll/storemap/internal/step/writer"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm"
	storageConfig "github.com/tigerroll/storemap/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	metrics "github.com/tigerroll/storemap/pkg/batch/core/metrics"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
)

const selectPattern = `SELECT "latitude","longitude","channel_id","store_id" FROM "entity"\."pincode_store_mapping" WHERE "channel_id" IN \(\$1,\$2,\$3\)`

type fakeConnector struct {
	conn database.DBConnection
	err  error
}

func (f *fakeConnector) Connect(ctx context.Context) (database.DBConnection, error) {
	return f.conn, f.err
}

type failingWriter struct{ calls int }

func (w *failingWriter) Name() string { return "broken" }
func (w *failingWriter) Write(ctx context.Context, records []model.StoreRecord) error {
	w.calls++
	return errors.New("disk full")
}

type spyRecorder struct {
	*metrics.NoOpMetricRecorder
	connectionFailures int
	status             string
	written            map[string]int
	flushed            bool
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{written: map[string]int{}}
}

func (s *spyRecorder) RecordConnectionFailure(ctx context.Context) { s.connectionFailures++ }
func (s *spyRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
	s.status = status
}
func (s *spyRecorder) RecordRecordsWritten(ctx context.Context, sourceName string, count int) {
	s.written[sourceName] += count
}
func (s *spyRecorder) Flush(ctx context.Context) error {
	s.flushed = true
	return nil
}

type fixture struct {
	dir      string
	deps     job.Dependencies
	recorder *spyRecorder
}

func newFixture(t *testing.T, connector job.Connector) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: dir}, "local")
	require.NoError(t, err)

	cfg := config.NewConfig().Storemap
	rd, err := reader.NewStoreLocationReader(cfg.Source)
	require.NoError(t, err)
	channels, err := model.NewChannelConfig([]model.Channel{
		{ID: 27, Name: "Blinkit", Color: "#D8C414"},
		{ID: 65, Name: "Swiggy", Color: "#EC822A"},
		{ID: 109, Name: "Zepto", Color: "#A10DA1"},
	})
	require.NoError(t, err)

	rec := newSpyRecorder()
	return &fixture{
		dir:      dir,
		recorder: rec,
		deps: job.Dependencies{
			Connector: connector,
			Fetcher:   rd,
			Processor: processor.NewStoreRecordProcessor(channels),
			Channels:  channels,
			Records:   writer.NewRecordsJSONWriter(store, "stores.json"),
			Writers: []writer.RecordWriter{
				writer.NewMapHTMLWriter(store, "index.html", render.NewStoreMapRenderer(render.MapOptions{Zoom: 10})),
			},
			Frontend: writer.NewFrontendConfigWriter(store, "config.js", "test-key"),
			Recorder: rec,
		},
	}
}

func (f *fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	require.NoError(t, err)
	return string(data)
}

func newMockConnection(t *testing.T) (database.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               gormadapter.NewGormLogger("ERROR"),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "postgres"}, "source")
	require.NoError(t, err)
	return conn, mock
}

func TestRun_ExportsSanitizedEnrichedRecords(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(selectPattern).
		WithArgs(27, 65, 109).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude", "channel_id", "store_id"}).
			AddRow(12.9, 77.5, int64(27), "S1").
			AddRow(nil, 77.6, int64(65), "S2").
			AddRow(13.0, 77.7, int64(999), "S3"))
	mock.ExpectClose()

	f := newFixture(t, &fakeConnector{conn: conn})
	summary, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.JSONEq(t, `[
		{"lat": 12.9, "lon": 77.5, "source_name": "Blinkit", "color": "#D8C414", "store_id": "S1"},
		{"lat": 13.0, "lon": 77.7, "source_name": "Unknown", "color": "#888888", "store_id": "S3"}
	]`, f.read(t, "stores.json"))
	assert.Equal(t, "const GOOGLE_MAPS_API_KEY = 'test-key';\n", f.read(t, "config.js"))
	assert.Contains(t, f.read(t, "index.html"), "Blinkit: 1")

	assert.NotEmpty(t, summary.RunID)
	assert.True(t, summary.Connected)
	assert.Equal(t, 3, summary.RowsFetched)
	assert.Equal(t, processor.ProcessStats{Read: 3, Kept: 2, Dropped: 1, UnknownChannel: 1}, summary.Stats)
	assert.Equal(t, []string{"records_json", "map_html"}, summary.Written)
	require.True(t, summary.HasCentroid)
	assert.InDelta(t, 12.95, summary.CenterLat, 1e-9)
	assert.InDelta(t, 77.6, summary.CenterLon, 1e-9)

	assert.Equal(t, metrics.StatusCompleted, f.recorder.status)
	if diff := cmp.Diff(map[string]int{"Blinkit": 1, "Unknown": 1}, f.recorder.written); diff != "" {
		t.Errorf("records written mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, f.recorder.flushed)
}

func TestRun_NoConnectionKeepsExistingRecords(t *testing.T) {
	f := newFixture(t, &fakeConnector{err: errors.New("connection refused")})
	previous := `[{"lat":1,"lon":2,"source_name":"Blinkit","color":"#D8C414","store_id":"OLD"}]`
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "stores.json"), []byte(previous), 0o644))

	summary, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrNoConnection)

	assert.Equal(t, previous, f.read(t, "stores.json"))
	assert.Equal(t, "const GOOGLE_MAPS_API_KEY = 'test-key';\n", f.read(t, "config.js"), "config is written regardless")
	_, statErr := os.Stat(filepath.Join(f.dir, "index.html"))
	assert.True(t, os.IsNotExist(statErr))

	assert.False(t, summary.Connected)
	assert.Equal(t, 1, f.recorder.connectionFailures)
	assert.Equal(t, metrics.StatusFailed, f.recorder.status)
}

func TestRun_NoConnectionCreatesEmptyRecords(t *testing.T) {
	f := newFixture(t, &fakeConnector{err: context.DeadlineExceeded})

	_, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "[]\n", f.read(t, "stores.json"))
}

func TestRun_QueryFailureWritesEmptyArray(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(selectPattern).WillReturnError(errors.New(`permission denied for table pincode_store_mapping`))
	mock.ExpectClose()

	f := newFixture(t, &fakeConnector{conn: conn})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "stores.json"), []byte(`[{"stale":true}]`), 0o644))

	summary, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrQueryFailed)
	assert.Equal(t, "[]\n", f.read(t, "stores.json"))
	assert.Equal(t, 0, summary.RowsFetched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_FailingWriterDoesNotStopOthers(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(selectPattern).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude", "channel_id", "store_id"}).
			AddRow(12.9, 77.5, int64(27), "S1"))
	mock.ExpectClose()

	f := newFixture(t, &fakeConnector{conn: conn})
	broken := &failingWriter{}
	f.deps.Writers = append([]writer.RecordWriter{broken}, f.deps.Writers...)

	summary, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, []string{"records_json", "map_html"}, summary.Written)
	assert.Contains(t, f.read(t, "stores.json"), "S1")
	assert.Contains(t, f.read(t, "config.js"), "test-key")
}

func TestRun_EmptyChannelTableWritesEmptyArray(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectClose()

	f := newFixture(t, &fakeConnector{conn: conn})
	empty, err := model.NewChannelConfig(nil)
	require.NoError(t, err)
	f.deps.Channels = empty
	f.deps.Processor = processor.NewStoreRecordProcessor(empty)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "stores.json"), []byte(`[{"stale":true}]`), 0o644))

	summary, err := job.NewStoreExportJob(f.deps).Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query is issued for an empty id set")

	assert.Equal(t, "[]\n", f.read(t, "stores.json"))
	assert.Equal(t, "const GOOGLE_MAPS_API_KEY = 'test-key';\n", f.read(t, "config.js"))
	assert.True(t, summary.Connected)
	assert.Equal(t, 0, summary.RowsFetched)
	assert.Equal(t, metrics.StatusCompleted, f.recorder.status)
}

func TestRun_RepeatedRunsProduceIdenticalRecords(t *testing.T) {
	newRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"latitude", "longitude", "channel_id", "store_id"}).
			AddRow(12.9, 77.5, int64(27), "S1").
			AddRow(math.NaN(), 77.6, int64(65), "S2").
			AddRow(13.0, 77.7, int64(109), int64(42)).
			AddRow(13.1, 77.8, int64(5), nil)
	}

	f := newFixture(t, nil)
	var outputs []string
	for i := 0; i < 2; i++ {
		conn, mock := newMockConnection(t)
		mock.ExpectQuery(selectPattern).WithArgs(27, 65, 109).WillReturnRows(newRows())
		mock.ExpectClose()
		f.deps.Connector = &fakeConnector{conn: conn}

		_, err := job.NewStoreExportJob(f.deps).Run(context.Background())
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
		outputs = append(outputs, f.read(t, "stores.json"))
	}

	if diff := cmp.Diff(outputs[0], outputs[1]); diff != "" {
		t.Errorf("second run changed stores.json (-first +second):\n%s", diff)
	}
	assert.JSONEq(t, `[
		{"lat": 12.9, "lon": 77.5, "source_name": "Blinkit", "color": "#D8C414", "store_id": "S1"},
		{"lat": 13.0, "lon": 77.7, "source_name": "Zepto", "color": "#A10DA1", "store_id": 42},
		{"lat": 13.1, "lon": 77.8, "source_name": "Unknown", "color": "#888888", "store_id": null}
	]`, outputs[0])
}
