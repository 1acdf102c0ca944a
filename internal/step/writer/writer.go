// Package writer persists the exported artifacts through a storage connection,
// so they can land on the local file system or in a bucket.
package writer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
)

const moduleName = "writer"

// RecordWriter writes the processed store records to one artifact.
type RecordWriter interface {
	// Name identifies the artifact in logs and metrics (e.g., "records_json").
	Name() string
	// Write replaces the artifact with records.
	Write(ctx context.Context, records []model.StoreRecord) error
}

func upload(ctx context.Context, store storage.StorageExecutor, path string, data []byte, contentType string) error {
	if err := store.Upload(ctx, "", path, bytes.NewReader(data), contentType); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to write %s", path), fmt.Errorf("%w: %v", exception.ErrWriteFailed, err))
	}
	return nil
}
