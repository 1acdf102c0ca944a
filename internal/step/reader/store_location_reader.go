// Package reader fetches store locations from the source database.
package reader

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

const moduleName = "reader"

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	tablePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// StoreLocationReader runs the store location query.
type StoreLocationReader struct {
	query database.SelectQuery
}

// NewStoreLocationReader validates the table and column names of cfg.
// They are configuration, not input, but they still end up in SQL text and must be plain identifiers.
func NewStoreLocationReader(cfg config.SourceConfig) (*StoreLocationReader, error) {
	if !tablePattern.MatchString(cfg.Table) {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("table name %q is not a valid identifier", cfg.Table), exception.ErrInvalidConfig)
	}
	columns := []string{cfg.LatitudeColumn, cfg.LongitudeColumn, cfg.ChannelColumn, cfg.StoreIDColumn}
	for _, c := range columns {
		if !identifierPattern.MatchString(c) {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("column name %q is not a valid identifier", c), exception.ErrInvalidConfig)
		}
	}
	return &StoreLocationReader{
		query: database.SelectQuery{
			Table:    cfg.Table,
			Columns:  columns,
			InColumn: cfg.ChannelColumn,
		},
	}, nil
}

// Fetch returns every row whose channel id is in channelIDs, in driver order.
// An empty id set yields no rows and no query. On failure the rows read so far are
// discarded, the error is logged and an empty slice is returned with the error.
func (r *StoreLocationReader) Fetch(ctx context.Context, exec database.DBExecutor, channelIDs []int) ([]model.RawStoreRow, error) {
	if len(channelIDs) == 0 {
		logger.Infof("No channel ids configured; skipping store location query.")
		return []model.RawStoreRow{}, nil
	}

	q := r.query
	q.InValues = make([]interface{}, len(channelIDs))
	for i, id := range channelIDs {
		q.InValues[i] = id
	}

	result, err := r.fetch(ctx, exec, q)
	if err != nil {
		logger.Errorf("Failed to fetch store locations from %s: %v", q.Table, err)
		return []model.RawStoreRow{}, exception.NewBatchError(moduleName, "store location query failed", fmt.Errorf("%w: %v", exception.ErrQueryFailed, err))
	}
	logger.Infof("Fetched %d store location rows from %s.", len(result), q.Table)
	return result, nil
}

func (r *StoreLocationReader) fetch(ctx context.Context, exec database.DBExecutor, q database.SelectQuery) ([]model.RawStoreRow, error) {
	rows, err := exec.ExecuteSelect(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.RawStoreRow, 0)
	for rows.Next() {
		var row model.RawStoreRow
		if err := rows.Scan(&row.Latitude, &row.Longitude, &row.ChannelID, &row.StoreID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
