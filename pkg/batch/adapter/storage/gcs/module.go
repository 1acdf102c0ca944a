package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/storemap/pkg/batch/adapter/storage"
)

// Module is the Fx module for the Google Cloud Storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
