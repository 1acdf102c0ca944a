package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/storemap/pkg/batch/core/adapter"
)

// SelectQuery describes a single-table SELECT filtered by membership of one column in a value set.
// Table and column names are quoted by the dialect; values are bound as parameters.
type SelectQuery struct {
	// Table is the table name, optionally schema-qualified ("schema.table").
	Table string
	// Columns are the selected columns, in result order.
	Columns []string
	// InColumn is the column tested against InValues.
	InColumn string
	// InValues is the value set. It must not be empty.
	InValues []interface{}
}

// DBExecutor defines the read operations the export run performs against a database.
type DBExecutor interface {
	// ExecuteSelect runs q and returns the open result cursor. The caller must close it.
	ExecuteSelect(ctx context.Context, q SelectQuery) (*sql.Rows, error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// Ping verifies that the database is reachable and the credentials are accepted.
	Ping(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a verified database connection by its configured name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection opens (or reuses) the named connection and pings it within ctx.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider is an interface responsible for providing database connections based on configuration.
type DBProvider interface {
	coreAdapter.ResourceProvider

	// GetConnection retrieves a database connection with the specified name.
	// The connection is not pinged; drivers connect lazily.
	GetConnection(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx value group collecting all DBProvider implementations.
const DBProviderGroup = "db_providers"
