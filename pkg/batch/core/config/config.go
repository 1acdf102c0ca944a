// Package config provides structures and utilities for managing application configuration.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ChannelEntry is one row of the channel table: a channel id with its display name and color.
type ChannelEntry struct {
	ID    int    `yaml:"id" mapstructure:"id"`
	Name  string `yaml:"name" mapstructure:"name"`
	Color string `yaml:"color" mapstructure:"color"`
}

// SourceConfig describes where store locations are read from.
type SourceConfig struct {
	// DBRef is the name of the database adapter configuration to use (e.g., "source").
	DBRef string `yaml:"db_ref"`
	// Table is the (optionally schema-qualified) table holding store locations.
	Table string `yaml:"table"`
	// LatitudeColumn is the column holding store latitudes.
	LatitudeColumn string `yaml:"latitude_column"`
	// LongitudeColumn is the column holding store longitudes.
	LongitudeColumn string `yaml:"longitude_column"`
	// ChannelColumn is the column holding the channel id.
	ChannelColumn string `yaml:"channel_column"`
	// StoreIDColumn is the column holding the store identifier.
	StoreIDColumn string `yaml:"store_id_column"`
	// ConnectTimeoutSeconds bounds connect and ping. Zero means no bound.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

// MapOutputConfig configures the optional standalone HTML map.
type MapOutputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Zoom    int    `yaml:"zoom"`
	Title   string `yaml:"title"`
}

// ParquetOutputConfig configures the optional parquet export.
type ParquetOutputConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"` // SNAPPY, GZIP or NONE
}

// OutputConfig holds artifact locations. Paths are relative to the storage adapter root.
type OutputConfig struct {
	// StorageRef is the name of the storage adapter configuration to write through.
	StorageRef string `yaml:"storage_ref"`
	// RecordsPath is where the stores JSON array is written.
	RecordsPath string              `yaml:"records_path"`
	Map         MapOutputConfig     `yaml:"map"`
	Parquet     ParquetOutputConfig `yaml:"parquet"`
}

// FrontendConfig holds the settings of the generated front-end configuration script.
type FrontendConfig struct {
	// Path is where the configuration script is written.
	Path string `yaml:"path"`
	// APIKey is the maps API key embedded in the script. Never logged.
	APIKey string `yaml:"api_key"`
}

// MetricsConfig configures run metrics.
type MetricsConfig struct {
	// TextfilePath, when set, receives the run metrics in Prometheus text format
	// (for the node_exporter textfile collector).
	TextfilePath string `yaml:"textfile_path"`
	// Exporter pushes the run metrics over OTLP: "none", "otlphttp" or "otlpgrpc".
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// TracingConfig configures run tracing.
type TracingConfig struct {
	// Exporter is one of "none", "otlphttp" or "otlpgrpc".
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// JobConfig holds run-level behavior.
type JobConfig struct {
	// FailOnError makes the process exit non-zero when any stage failed.
	FailOnError bool `yaml:"fail_on_error"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Kolkata").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// StoremapConfig holds all configuration under the "storemap" top-level key.
type StoremapConfig struct {
	System   SystemConfig   `yaml:"system"`
	Job      JobConfig      `yaml:"job"`
	Source   SourceConfig   `yaml:"source"`
	Channels []ChannelEntry `yaml:"channels"`
	Output   OutputConfig   `yaml:"output"`
	Frontend FrontendConfig `yaml:"frontend"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	// AdapterConfigs holds raw adapter settings keyed by adapter kind ("database", "storage")
	// and then by connection name. They are decoded by the adapter packages.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Storemap StoremapConfig `yaml:"storemap"`
	// EmbeddedConfig holds the raw configuration source, not read from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// DefaultChannels returns the channel table used when none is configured.
func DefaultChannels() []ChannelEntry {
	return []ChannelEntry{
		{ID: 27, Name: "Blinkit", Color: "#D8C414"},
		{ID: 65, Name: "Swiggy", Color: "#EC822A"},
		{ID: 109, Name: "Zepto", Color: "#A10DA1"},
	}
}

// NewConfig returns a new instance of Config with default values.
//
// Returns:
//
//	A pointer to a new Config instance initialized with default settings.
func NewConfig() *Config {
	cfg := &Config{
		Storemap: StoremapConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Source: SourceConfig{
				DBRef:           "source",
				Table:           "entity.pincode_store_mapping",
				LatitudeColumn:  "latitude",
				LongitudeColumn: "longitude",
				ChannelColumn:   "channel_id",
				StoreIDColumn:   "store_id",
			},
			Channels: DefaultChannels(),
			Output: OutputConfig{
				StorageRef:  "local",
				RecordsPath: "stores.json",
				Map:         MapOutputConfig{Path: "index.html", Zoom: 10, Title: "Store Locations"},
				Parquet:     ParquetOutputConfig{Path: "stores.parquet", Compression: "SNAPPY"},
			},
			Frontend: FrontendConfig{Path: "config.js"},
			Metrics:  MetricsConfig{Exporter: "none"},
			Tracing:  TracingConfig{Exporter: "none", ServiceName: "storemap"},
		},
	}
	cfg.Storemap.AdapterConfigs = map[string]interface{}{}
	return cfg
}

// AdapterConfig returns the raw settings of the named adapter of the given kind
// (e.g., kind "database", name "source"). The second result is false when absent.
func (c *Config) AdapterConfig(kind, name string) (interface{}, bool) {
	kindConfigs, ok := c.Storemap.AdapterConfigs[kind]
	if !ok {
		return nil, false
	}
	raw, ok := toStringMap(kindConfigs)[name]
	return raw, ok
}
