package gorm

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/storemap/pkg/batch/core/adapter"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
)

// servingProvider is implemented by providers that accept configuration types besides their own.
type servingProvider interface {
	Serves(dbType string) bool
}

// GormDBConnectionResolver is the gorm implementation of database.DBConnectionResolver.
type GormDBConnectionResolver struct {
	dbProviders []database.DBProvider
	cfg         *config.Config
}

// ResolverParams are the Fx dependencies of NewGormDBConnectionResolver.
type ResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver.
func NewGormDBConnectionResolver(p ResolverParams) *GormDBConnectionResolver {
	return &GormDBConnectionResolver{
		dbProviders: p.DBProviders,
		cfg:         p.Cfg,
	}
}

// ResolveDBConnection resolves the named connection and pings it under ctx.
// A failed ping is returned as an error; the connection is not retried.
//
// Parameters:
//
//	ctx: Bounds the ping. A deadline on ctx acts as the connect timeout.
//	name: The name of the entry under storemap.adapter.database.
//
// Returns:
//
//	The verified connection, or an error describing why it is unusable.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbConfig, err := LookupDatabaseConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}

	provider, err := r.providerFor(dbConfig.Type)
	if err != nil {
		return nil, fmt.Errorf("connection '%s': %w", name, err)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection '%s': %w", name, err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connection '%s' (%s) is not usable: %w", name, dbConfig, err)
	}
	return conn, nil
}

func (r *GormDBConnectionResolver) providerFor(dbType string) (database.DBProvider, error) {
	for _, p := range r.dbProviders {
		if p.Type() == dbType {
			return p, nil
		}
	}
	for _, p := range r.dbProviders {
		if sp, ok := p.(servingProvider); ok && sp.Serves(dbType) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no DBProvider registered for type '%s'", dbType)
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *GormDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

// CloseAll closes every connection opened through the registered providers.
func (r *GormDBConnectionResolver) CloseAll() error {
	var lastErr error
	for _, p := range r.dbProviders {
		if err := p.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ coreAdapter.ResourceConnectionResolver = (*GormDBConnectionResolver)(nil)
