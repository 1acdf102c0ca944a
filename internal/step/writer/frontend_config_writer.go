package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/storemap/pkg/batch/adapter/storage"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

var jsStringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
	"</", `<\/`,
)

// FrontendConfigWriter writes the browser configuration script holding the maps API key.
type FrontendConfigWriter struct {
	store  storage.StorageExecutor
	path   string
	apiKey string
}

// NewFrontendConfigWriter creates a new FrontendConfigWriter.
func NewFrontendConfigWriter(store storage.StorageExecutor, path, apiKey string) *FrontendConfigWriter {
	return &FrontendConfigWriter{store: store, path: path, apiKey: apiKey}
}

// Render returns the script text.
func (w *FrontendConfigWriter) Render() string {
	return fmt.Sprintf("const GOOGLE_MAPS_API_KEY = '%s';\n", jsStringEscaper.Replace(w.apiKey))
}

// Write replaces the configuration script. A missing key is written as an empty string.
func (w *FrontendConfigWriter) Write(ctx context.Context) error {
	if w.apiKey == "" {
		logger.Warnf("Maps API key is not set; %s will contain an empty key.", w.path)
	}
	if err := upload(ctx, w.store, w.path, []byte(w.Render()), "text/javascript; charset=utf-8"); err != nil {
		return err
	}
	logger.Infof("Wrote front-end configuration to %s.", w.path)
	return nil
}
