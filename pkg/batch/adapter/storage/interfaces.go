// Package storage defines the common interfaces for the storage adapters that receive
// the exported artifacts. The local file system and Google Cloud Storage are supported
// through the same API.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/storemap/pkg/batch/core/adapter"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload stores data under objectName, replacing any previous content.
	// An empty bucket selects the configured default bucket.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName for reading. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// Exists reports whether objectName is present.
	Exists(ctx context.Context, bucket, objectName string) (bool, error)
}

// StorageConnection represents a generic data storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection // Inherits Close(), Type(), Name()
	StorageExecutor
}

// StorageProvider manages the acquisition and lifecycle of storage connections of one type.
type StorageProvider interface {
	coreAdapter.ResourceProvider

	// GetConnection retrieves the StorageConnection configured under the specified name.
	GetConnection(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves storage connections by configured name.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveStorageConnection returns the connection configured under name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the Fx value group collecting all StorageProvider implementations.
const StorageProviderGroup = "storage_providers"
