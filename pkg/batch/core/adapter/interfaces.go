// Package adapter defines the contracts shared by every external resource the export run touches.
package adapter

import (
	"context"
)

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "postgres", "local", "gcs").
	Type() string
	// Name returns the connection name (e.g., "source", "local").
	Name() string
}

// ResourceProvider provides resource connections based on configuration.
type ResourceProvider interface {
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the type handled by this provider (e.g., "postgres", "gcs").
	Type() string
}

// ResourceConnectionResolver resolves a usable resource connection by its configured name.
type ResourceConnectionResolver interface {
	// ResolveConnection returns a connection that has been verified to be usable.
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
