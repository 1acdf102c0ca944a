// Package mysql provides a gorm DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/storemap/pkg/batch/core/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// ConnectionString builds the go-sql-driver DSN. Special characters in the
// password are handled by the driver's own formatter.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dc := drivermysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	if c.ConnectTimeoutSeconds > 0 {
		dc.Timeout = time.Duration(c.ConnectTimeoutSeconds) * time.Second
	}
	if c.Sslmode == "require" {
		dc.TLSConfig = "true"
	}
	return dc.FormatDSN()
}

// NewProvider creates a new MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "mysql")}
}
