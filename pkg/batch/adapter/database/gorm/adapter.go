package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/storemap/pkg/batch/adapter/database/config"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gorm_logger "gorm.io/gorm/logger"
)

// NewGormLogger creates a gorm logger whose verbosity follows the application log level.
// SQL statements are only traced at DEBUG.
func NewGormLogger(level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		gormLevel = gorm_logger.Info
	case "INFO", "WARN":
		gormLevel = gorm_logger.Warn
	case "ERROR":
		gormLevel = gorm_logger.Error
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm log output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements the gorm logger.Writer interface.
// Traced statements go to DEBUG, everything else (slow queries, errors) to WARN.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatementTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

func isStatementTrace(msg string) bool {
	return strings.Contains(msg, "[rows:") && !strings.Contains(msg, "SLOW SQL") && !strings.Contains(strings.ToLower(msg), "error")
}

// GormDBAdapter implements database.DBConnection on top of *gorm.DB.
type GormDBAdapter struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

// NewGormDBAdapter wraps an opened gorm session.
//
// Parameters:
//
//	db: The opened gorm session.
//	cfg: The configuration the session was opened from.
//	name: The configured connection name.
//
// Returns:
//
//	The connection, or an error if the underlying *sql.DB is unavailable.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return &GormDBAdapter{
		db:     db,
		sqlDB:  sqlDB,
		cfg:    cfg,
		dbType: cfg.Type,
		name:   name,
	}, nil
}

// Close closes the underlying connection pool.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Debugf("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

// Type returns the database type.
func (a *GormDBAdapter) Type() string {
	return a.dbType
}

// Name returns the configured connection name.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// Ping implements database.DBConnection.
func (a *GormDBAdapter) Ping(ctx context.Context) error {
	if a.sqlDB == nil {
		return errors.New("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, errors.New("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// ExecuteSelect implements database.DBExecutor.
// The statement is built from gorm clauses, so identifiers are quoted by the dialect and the
// value set is expanded into bound placeholders; nothing from q is spliced into SQL text.
func (a *GormDBAdapter) ExecuteSelect(ctx context.Context, q database.SelectQuery) (*sql.Rows, error) {
	if q.Table == "" || q.InColumn == "" || len(q.Columns) == 0 {
		return nil, errors.New("select query requires a table, columns and a filter column")
	}
	if len(q.InValues) == 0 {
		return nil, errors.New("select query requires a non-empty value set")
	}

	columns := make([]clause.Column, len(q.Columns))
	for i, name := range q.Columns {
		columns[i] = clause.Column{Name: name}
	}

	return a.db.WithContext(ctx).
		Table(q.Table).
		Clauses(clause.Select{Columns: columns}).
		Where(clause.IN{Column: clause.Column{Name: q.InColumn}, Values: q.InValues}).
		Rows()
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
