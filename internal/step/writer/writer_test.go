package writer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pqreader "github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"go.uber.org/goleak"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/render"
	"github.com/tigerroll/storemap/internal/step/writer"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/storemap/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var scenarioRecords = []model.StoreRecord{
	{Lat: 12.9, Lon: 77.5, SourceName: "Blinkit", Color: "#D8C414", StoreID: "S1"},
	{Lat: 13.0, Lon: 77.7, SourceName: "Unknown", Color: "#888888", StoreID: "S3"},
}

func newLocalStore(t *testing.T) (storage.StorageConnection, string) {
	t.Helper()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: dir}, "local")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, dir
}

func TestRecordsJSONWriter_WritesIndentedArray(t *testing.T) {
	store, dir := newLocalStore(t)
	w := writer.NewRecordsJSONWriter(store, "stores.json")

	require.NoError(t, w.Write(context.Background(), scenarioRecords))

	data, err := os.ReadFile(filepath.Join(dir, "stores.json"))
	require.NoError(t, err)
	want := `[
  {
    "lat": 12.9,
    "lon": 77.5,
    "source_name": "Blinkit",
    "color": "#D8C414",
    "store_id": "S1"
  },
  {
    "lat": 13,
    "lon": 77.7,
    "source_name": "Unknown",
    "color": "#888888",
    "store_id": "S3"
  }
]
`
	assert.Equal(t, want, string(data))

	var decoded []model.StoreRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(scenarioRecords, decoded); diff != "" {
		t.Errorf("decoded records mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsJSONWriter_EmptyIsArray(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, writer.NewRecordsJSONWriter(store, "stores.json").Write(context.Background(), nil))

	data, err := os.ReadFile(filepath.Join(dir, "stores.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRecordsJSONWriter_EnsureExists(t *testing.T) {
	ctx := context.Background()
	store, dir := newLocalStore(t)
	w := writer.NewRecordsJSONWriter(store, "stores.json")

	require.NoError(t, w.EnsureExists(ctx))
	data, err := os.ReadFile(filepath.Join(dir, "stores.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data), "absent file is created empty")

	require.NoError(t, w.Write(ctx, scenarioRecords))
	require.NoError(t, w.EnsureExists(ctx))
	data, err = os.ReadFile(filepath.Join(dir, "stores.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Blinkit", "existing export is preserved")
}

func TestRecordsJSONWriter_UploadFailure(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "stores.json"), 0o755))

	err := writer.NewRecordsJSONWriter(store, "stores.json").Write(context.Background(), scenarioRecords)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrWriteFailed)
}

func TestFrontendConfigWriter(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain key", "abc123", "const GOOGLE_MAPS_API_KEY = 'abc123';\n"},
		{"missing key", "", "const GOOGLE_MAPS_API_KEY = '';\n"},
		{"escaped key", "a'b\\c\nd", "const GOOGLE_MAPS_API_KEY = 'a\\'b\\\\c\\nd';\n"},
		{"script end", "</script>", "const GOOGLE_MAPS_API_KEY = '<\\/script>';\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newLocalStore(t)
			require.NoError(t, writer.NewFrontendConfigWriter(store, "config.js", tt.key).Write(context.Background()))

			data, err := os.ReadFile(filepath.Join(dir, "config.js"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMapHTMLWriter(t *testing.T) {
	ctx := context.Background()
	store, dir := newLocalStore(t)
	w := writer.NewMapHTMLWriter(store, "index.html", render.NewStoreMapRenderer(render.MapOptions{Zoom: 10}))

	require.NoError(t, w.Write(ctx, nil))
	_, err := os.Stat(filepath.Join(dir, "index.html"))
	assert.True(t, os.IsNotExist(err), "no map without records")

	require.NoError(t, w.Write(ctx, scenarioRecords))
	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Blinkit: 1")
	assert.Contains(t, string(data), "Unknown: 1")
}

// memFile is a read-only in-memory source.ParquetFile.
type memFile struct {
	data []byte
	*bytes.Reader
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: data, Reader: bytes.NewReader(data)}
}

func (f *memFile) Open(string) (source.ParquetFile, error)   { return newMemFile(f.data), nil }
func (f *memFile) Create(string) (source.ParquetFile, error) { return nil, errors.New("read-only") }
func (f *memFile) Write([]byte) (int, error)                 { return 0, errors.New("read-only") }
func (f *memFile) Close() error                              { return nil }

func TestStoreParquetWriter_RoundTrip(t *testing.T) {
	store, dir := newLocalStore(t)
	w, err := writer.NewStoreParquetWriter(store, "stores.parquet", "SNAPPY")
	require.NoError(t, err)

	records := append([]model.StoreRecord{}, scenarioRecords...)
	records = append(records, model.StoreRecord{Lat: 14, Lon: 78, SourceName: "Zepto", Color: "#A10DA1", StoreID: nil})
	require.NoError(t, w.Write(context.Background(), records))

	data, err := os.ReadFile(filepath.Join(dir, "stores.parquet"))
	require.NoError(t, err)

	pr, err := pqreader.NewParquetReader(newMemFile(data), new(writer.ParquetStoreRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(3), pr.GetNumRows())

	rows := make([]writer.ParquetStoreRecord, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))

	want := make([]writer.ParquetStoreRecord, len(records))
	for i, rec := range records {
		want[i] = writer.ToParquetRecord(rec)
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("parquet rows mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreParquetWriter_SkipsEmptyAndRejectsCodec(t *testing.T) {
	store, dir := newLocalStore(t)
	w, err := writer.NewStoreParquetWriter(store, "stores.parquet", "")
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), nil))
	_, err = os.Stat(filepath.Join(dir, "stores.parquet"))
	assert.True(t, os.IsNotExist(err))

	_, err = writer.NewStoreParquetWriter(store, "stores.parquet", "LZ77")
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)
}
