package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/storemap/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/storemap/pkg/batch/core/adapter"
	coreConfig "github.com/tigerroll/storemap/pkg/batch/core/config"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// LookupStorageConfig decodes the named entry of storemap.adapter.storage.
func LookupStorageConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	raw, ok := cfg.AdapterConfig("storage", name)
	if !ok {
		return storageConfig.StorageConfig{}, fmt.Errorf("storage configuration '%s' not found under storemap.adapter.storage", name)
	}
	sc, err := storageConfig.Decode(raw)
	if err != nil {
		return storageConfig.StorageConfig{}, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}

// ConnectionResolver dispatches to the StorageProvider matching the configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ResolverParams are the Fx dependencies of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewConnectionResolver creates a new ConnectionResolver.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveStorageConnection returns the connection configured under name.
// A name with no configuration entry resolves to a local connection rooted at the
// working directory, which is where the artifacts were always written.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	providerType := "local"
	if _, ok := r.cfg.AdapterConfig("storage", name); ok {
		sc, err := LookupStorageConfig(r.cfg, name)
		if err != nil {
			return nil, err
		}
		providerType = sc.Type
	} else {
		logger.Debugf("No storage configuration named '%s'; writing to the working directory.", name)
	}

	provider, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", providerType, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, providerType, err)
	}
	return conn, nil
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var lastErr error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ coreAdapter.ResourceConnectionResolver = (*ConnectionResolver)(nil)
