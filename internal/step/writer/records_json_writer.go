package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// RecordsJSONWriter writes the records as a JSON array indented by two spaces.
type RecordsJSONWriter struct {
	store storage.StorageExecutor
	path  string
}

// NewRecordsJSONWriter creates a new RecordsJSONWriter.
func NewRecordsJSONWriter(store storage.StorageExecutor, path string) *RecordsJSONWriter {
	return &RecordsJSONWriter{store: store, path: path}
}

func (w *RecordsJSONWriter) Name() string { return "records_json" }

// Path returns the object name of the records file.
func (w *RecordsJSONWriter) Path() string { return w.path }

// Write replaces the records file. A nil slice is written as [].
func (w *RecordsJSONWriter) Write(ctx context.Context, records []model.StoreRecord) error {
	if records == nil {
		records = []model.StoreRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode store records: %w", err)
	}
	if err := upload(ctx, w.store, w.path, buf.Bytes(), "application/json"); err != nil {
		return err
	}
	logger.Infof("Wrote %d store records to %s.", len(records), w.path)
	return nil
}

// EnsureExists writes an empty array unless the records file is already present.
// It is used when no data could be read, so a previous export is kept.
func (w *RecordsJSONWriter) EnsureExists(ctx context.Context) error {
	exists, err := w.store.Exists(ctx, "", w.path)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", w.path, err)
	}
	if exists {
		logger.Warnf("No data available; keeping existing %s.", w.path)
		return nil
	}
	return w.Write(ctx, nil)
}
