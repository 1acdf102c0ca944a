package reader

import (
	"context"
	"time"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// SourceConnector opens the connection to the source database.
type SourceConnector struct {
	resolver database.DBConnectionResolver
	cfg      config.SourceConfig
}

// NewSourceConnector creates a new SourceConnector.
func NewSourceConnector(resolver database.DBConnectionResolver, cfg config.SourceConfig) *SourceConnector {
	return &SourceConnector{resolver: resolver, cfg: cfg}
}

// Connect resolves and pings the configured connection.
// Any failure (missing config, unreachable host, rejected credentials, timeout) is returned
// as an error together with a nil connection; there is no retry.
func (c *SourceConnector) Connect(ctx context.Context) (database.DBConnection, error) {
	if c.cfg.ConnectTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.ConnectTimeoutSeconds)*time.Second)
		defer cancel()
	}

	conn, err := c.resolver.ResolveDBConnection(ctx, c.cfg.DBRef)
	if err != nil {
		return nil, err
	}
	logger.Infof("Connected to source database '%s' (%s).", c.cfg.DBRef, conn.Type())
	return conn, nil
}
