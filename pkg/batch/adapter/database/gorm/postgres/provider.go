// Package postgres provides a gorm DBProvider implementation for PostgreSQL and Redshift databases.
package postgres

import (
	"fmt"
	"strings"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/storemap/pkg/batch/core/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	factory := func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	}
	gormadapter.RegisterDialector("postgres", factory)
	gormadapter.RegisterDialector("redshift", factory)
}

// PostgresDBProvider implements database.DBProvider for PostgreSQL and Redshift connections.
type PostgresDBProvider struct {
	*gormadapter.BaseProvider
}

// ConnectionString generates the keyword/value DSN expected by gorm.io/driver/postgres.
// Values containing spaces or quotes are single-quoted as libpq requires.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), c.Port, dsnValue(c.User), dsnValue(c.Password), dsnValue(c.Database), dsnValue(c.Sslmode))
	if c.Schema != "" {
		dsn += " search_path=" + dsnValue(c.Schema)
	}
	if c.ConnectTimeoutSeconds > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", c.ConnectTimeoutSeconds)
	}
	return dsn
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// NewProvider creates a new database.DBProvider for PostgreSQL. It also serves "redshift" entries.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &PostgresDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "postgres", "redshift")}
}
