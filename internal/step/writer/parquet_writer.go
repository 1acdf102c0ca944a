package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// ParquetStoreRecord is the parquet row layout of a StoreRecord.
// The store id is stored as text since its source type varies between databases.
type ParquetStoreRecord struct {
	Lat        float64 `parquet:"name=lat, type=DOUBLE"`
	Lon        float64 `parquet:"name=lon, type=DOUBLE"`
	SourceName string  `parquet:"name=source_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Color      string  `parquet:"name=color, type=BYTE_ARRAY, convertedtype=UTF8"`
	StoreID    *string `parquet:"name=store_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// StoreParquetWriter writes the records to a single parquet file.
type StoreParquetWriter struct {
	store       storage.StorageExecutor
	path        string
	compression parquet.CompressionCodec
	toRow       func(model.StoreRecord) interface{}
}

// NewStoreParquetWriter creates a new StoreParquetWriter.
// compression is one of SNAPPY (default), GZIP or NONE.
func NewStoreParquetWriter(store storage.StorageExecutor, path, compression string) (*StoreParquetWriter, error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, err.Error(), exception.ErrInvalidConfig)
	}
	return &StoreParquetWriter{
		store:       store,
		path:        path,
		compression: codec,
		toRow:       func(rec model.StoreRecord) interface{} { return ToParquetRecord(rec) },
	}, nil
}

func (w *StoreParquetWriter) Name() string { return "parquet" }

// Write encodes records into one row group and stores the file.
// With no records nothing is written.
func (w *StoreParquetWriter) Write(ctx context.Context, records []model.StoreRecord) error {
	if len(records) == 0 {
		logger.Infof("No store records; skipping parquet file %s.", w.path)
		return nil
	}

	data, err := w.encode(records)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode parquet file", err)
	}
	if err := upload(ctx, w.store, w.path, data, "application/vnd.apache.parquet"); err != nil {
		return err
	}
	logger.Infof("Wrote %d store records to %s.", len(records), w.path)
	return nil
}

func (w *StoreParquetWriter) encode(records []model.StoreRecord) (data []byte, err error) {
	// The parquet library reports some schema and value problems by panicking.
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()

	buf := new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, new(ParquetStoreRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = w.compression

	for _, rec := range records {
		if err := pw.Write(w.toRow(rec)); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}

// ToParquetRecord converts a record to its parquet row.
func ToParquetRecord(rec model.StoreRecord) ParquetStoreRecord {
	row := ParquetStoreRecord{
		Lat:        rec.Lat,
		Lon:        rec.Lon,
		SourceName: rec.SourceName,
		Color:      rec.Color,
	}
	if rec.StoreID != nil {
		id := fmt.Sprint(rec.StoreID)
		row.StoreID = &id
	}
	return row
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "", "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported parquet compression type %q", name)
}
