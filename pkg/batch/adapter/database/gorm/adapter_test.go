package gorm_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/storemap/pkg/batch/adapter/database/gorm"
	coreconfig "github.com/tigerroll/storemap/pkg/batch/core/config"
)

// newSqlmock forwards opts to sqlmock.New. sqlmock's option type has an
// unexported parameter type, so it cannot be named outside the package.
func newSqlmock[F any](newFn func(...F) (*sql.DB, sqlmock.Sqlmock, error), opts []any) (*sql.DB, sqlmock.Sqlmock, error) {
	fs := make([]F, len(opts))
	for i, o := range opts {
		fs[i] = o.(F)
	}
	return newFn(fs...)
}

func newMockAdapter(t *testing.T, opts ...any) (*gormadapter.GormDBAdapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := newSqlmock(sqlmock.New, opts)
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               gormadapter.NewGormLogger("ERROR"),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "postgres"}, "source")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mock
}

func TestExecuteSelect_QuotesIdentifiersAndBindsValues(t *testing.T) {
	conn, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT "latitude","longitude","channel_id","store_id" FROM "entity"\."pincode_store_mapping" WHERE "channel_id" IN \(\$1,\$2,\$3\)`).
		WithArgs(27, 65, 109).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude", "channel_id", "store_id"}).
			AddRow(12.9, 77.5, 27, "S1"))

	rows, err := conn.ExecuteSelect(context.Background(), database.SelectQuery{
		Table:    "entity.pincode_store_mapping",
		Columns:  []string{"latitude", "longitude", "channel_id", "store_id"},
		InColumn: "channel_id",
		InValues: []interface{}{27, 65, 109},
	})
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSelect_RejectsIncompleteQueries(t *testing.T) {
	conn, mock := newMockAdapter(t)
	ctx := context.Background()

	_, err := conn.ExecuteSelect(ctx, database.SelectQuery{Table: "t", Columns: []string{"a"}, InColumn: "a"})
	assert.Error(t, err, "empty value set")

	_, err = conn.ExecuteSelect(ctx, database.SelectQuery{Columns: []string{"a"}, InColumn: "a", InValues: []interface{}{1}})
	assert.Error(t, err, "missing table")

	assert.NoError(t, mock.ExpectationsWereMet(), "no statement reaches the driver")
}

func TestExecuteSelect_PropagatesDriverErrors(t *testing.T) {
	conn, mock := newMockAdapter(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New(`relation "stores" does not exist`))

	_, err := conn.ExecuteSelect(context.Background(), database.SelectQuery{
		Table: "stores", Columns: []string{"a"}, InColumn: "a", InValues: []interface{}{1},
	})
	assert.ErrorContains(t, err, "does not exist")
}

func TestPing(t *testing.T) {
	conn, mock := newMockAdapter(t, sqlmock.MonitorPingsOption(true))

	mock.ExpectPing()
	assert.NoError(t, conn.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("password authentication failed"))
	assert.Error(t, conn.Ping(context.Background()))

	assert.Equal(t, "source", conn.Name())
	assert.Equal(t, "postgres", conn.Type())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeProvider hands out a prepared connection.
type fakeProvider struct {
	dbType string
	conn   database.DBConnection
	closed int
}

func (p *fakeProvider) GetConnection(string) (database.DBConnection, error) { return p.conn, nil }
func (p *fakeProvider) CloseAll() error                                     { p.closed++; return nil }
func (p *fakeProvider) Type() string                                        { return p.dbType }

func resolverConfig(dbType string) *coreconfig.Config {
	cfg := coreconfig.NewConfig()
	cfg.Storemap.AdapterConfigs["database"] = map[string]interface{}{
		"source": map[string]interface{}{"type": dbType, "host": "db.internal", "port": "5432"},
	}
	return cfg
}

func TestResolver_ResolveDBConnection(t *testing.T) {
	conn, mock := newMockAdapter(t, sqlmock.MonitorPingsOption(true))
	provider := &fakeProvider{dbType: "postgres", conn: conn}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{provider},
		Cfg:         resolverConfig("postgres"),
	})

	mock.ExpectPing()
	got, err := resolver.ResolveDBConnection(context.Background(), "source")
	require.NoError(t, err)
	assert.Same(t, conn, got)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	_, err = resolver.ResolveDBConnection(context.Background(), "source")
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, resolver.CloseAll())
	assert.Equal(t, 1, provider.closed)
}

func TestResolver_Failures(t *testing.T) {
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{&fakeProvider{dbType: "postgres"}},
		Cfg:         resolverConfig("oracle"),
	})

	_, err := resolver.ResolveDBConnection(context.Background(), "source")
	assert.ErrorContains(t, err, "no DBProvider registered for type 'oracle'")

	_, err = resolver.ResolveDBConnection(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestLookupDatabaseConfig_DecodesStringsAndDefaults(t *testing.T) {
	cfg := resolverConfig("postgres")
	dbCfg, err := gormadapter.LookupDatabaseConfig(cfg, "source")
	require.NoError(t, err)
	assert.Equal(t, 5432, dbCfg.Port)
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, "disable", dbCfg.Sslmode)
}
