package mysql_test

import (
	"testing"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm/mysql"
)

func TestConnectionString(t *testing.T) {
	dsn := mysql.ConnectionString(dbconfig.DatabaseConfig{
		Type:                  "mysql",
		Host:                  "mysql_host",
		Port:                  3306,
		Database:              "mysql_db",
		User:                  "mysql_user",
		Password:              "p@ss:word/",
		ConnectTimeoutSeconds: 3,
	})

	parsed, err := drivermysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "mysql_user", parsed.User)
	assert.Equal(t, "p@ss:word/", parsed.Passwd)
	assert.Equal(t, "mysql_host:3306", parsed.Addr)
	assert.Equal(t, "mysql_db", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 3*time.Second, parsed.Timeout)
}
