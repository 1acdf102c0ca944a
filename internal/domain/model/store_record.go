// Package model holds the records exchanged between the reader, the processor and the writers.
package model

// StoreRecord is one exported store location.
// All five keys are always present in the JSON output; StoreID is null when the source had none.
type StoreRecord struct {
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"lon"`
	SourceName string      `json:"source_name"`
	Color      string      `json:"color"`
	StoreID    interface{} `json:"store_id"`
}

// RawStoreRow is one row as returned by the database driver, before parsing.
type RawStoreRow struct {
	Latitude  interface{}
	Longitude interface{}
	ChannelID interface{}
	StoreID   interface{}
}
