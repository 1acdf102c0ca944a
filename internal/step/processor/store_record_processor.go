// Package processor turns fetched rows into exportable store records.
package processor

import (
	"math"
	"strconv"
	"strings"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// DropReasonInvalidCoordinates labels rows discarded for a missing or non-finite coordinate.
const DropReasonInvalidCoordinates = "invalid_coordinates"

// ProcessStats summarizes one Process call.
type ProcessStats struct {
	Read           int
	Kept           int
	Dropped        int
	UnknownChannel int
}

// StoreRecordProcessor drops rows without usable coordinates and labels the rest with
// their channel name and color.
type StoreRecordProcessor struct {
	channels *model.ChannelConfig
}

// NewStoreRecordProcessor creates a new StoreRecordProcessor.
func NewStoreRecordProcessor(channels *model.ChannelConfig) *StoreRecordProcessor {
	return &StoreRecordProcessor{channels: channels}
}

// Process keeps the input order. Rows whose latitude or longitude is missing,
// unparseable, NaN or infinite are dropped silently; unknown or unparseable channel ids
// get the Unknown sentinel.
func (p *StoreRecordProcessor) Process(rows []model.RawStoreRow) ([]model.StoreRecord, ProcessStats) {
	stats := ProcessStats{Read: len(rows)}
	records := make([]model.StoreRecord, 0, len(rows))

	for _, row := range rows {
		lat, okLat := toCoordinate(row.Latitude)
		lon, okLon := toCoordinate(row.Longitude)
		if !okLat || !okLon {
			stats.Dropped++
			continue
		}

		ch := model.Channel{Name: model.UnknownChannelName, Color: model.UnknownChannelColor}
		if id, ok := toChannelID(row.ChannelID); ok && p.channels.Known(id) {
			ch = p.channels.Lookup(id)
		} else {
			stats.UnknownChannel++
		}

		records = append(records, model.StoreRecord{
			Lat:        lat,
			Lon:        lon,
			SourceName: ch.Name,
			Color:      ch.Color,
			StoreID:    normalizeStoreID(row.StoreID),
		})
	}

	stats.Kept = len(records)
	if stats.Dropped > 0 {
		logger.Debugf("Dropped %d of %d rows without usable coordinates.", stats.Dropped, stats.Read)
	}
	return records, stats
}

func toCoordinate(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case int:
		f = float64(val)
	case int16:
		f = float64(val)
	case int8:
		f = float64(val)
	case uint64:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toChannelID(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case int:
		return val, true
	case int16:
		return int(val), true
	case int8:
		return int(val), true
	case uint64:
		if val > math.MaxInt32 {
			return 0, false
		}
		return int(val), true
	case uint32:
		return int(val), true
	case uint16:
		return int(val), true
	case uint8:
		return int(val), true
	case uint:
		if val > math.MaxInt32 {
			return 0, false
		}
		return int(val), true
	case float32:
		return toChannelID(float64(val))
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > math.MaxInt32 {
			return 0, false
		}
		return int(val), true
	case string:
		return parseChannelID(val)
	case []byte:
		return parseChannelID(string(val))
	}
	return 0, false
}

func parseChannelID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return id, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return toChannelID(f)
	}
	return 0, false
}

func normalizeStoreID(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
