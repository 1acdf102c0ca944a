package writer

import (
	"context"
	"errors"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/render"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// MapHTMLWriter renders the store map and stores the page.
type MapHTMLWriter struct {
	store    storage.StorageExecutor
	path     string
	renderer *render.StoreMapRenderer
}

// NewMapHTMLWriter creates a new MapHTMLWriter.
func NewMapHTMLWriter(store storage.StorageExecutor, path string, renderer *render.StoreMapRenderer) *MapHTMLWriter {
	return &MapHTMLWriter{store: store, path: path, renderer: renderer}
}

func (w *MapHTMLWriter) Name() string { return "map_html" }

// Write renders and stores the map. With no records nothing is written.
func (w *MapHTMLWriter) Write(ctx context.Context, records []model.StoreRecord) error {
	page, err := w.renderer.Render(records)
	if errors.Is(err, render.ErrNoRecords) {
		logger.Infof("No store records to plot; %s was not generated.", w.path)
		return nil
	}
	if err != nil {
		return err
	}
	if err := upload(ctx, w.store, w.path, page, "text/html; charset=utf-8"); err != nil {
		return err
	}
	logger.Infof("Wrote store map with %d markers to %s.", len(records), w.path)
	return nil
}
