package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type                  string     `yaml:"type"`                    // Database type ("postgres", "redshift", "mysql", "sqlite").
	Host                  string     `yaml:"host"`                    // Database host address.
	Port                  int        `yaml:"port"`                    // Database port number.
	Database              string     `yaml:"database"`                // Database name, or file path for sqlite.
	User                  string     `yaml:"user"`                    // Database user.
	Password              string     `yaml:"password"`                // Database password.
	Schema                string     `yaml:"schema,omitempty"`        // Search path for PostgreSQL/Redshift.
	Sslmode               string     `yaml:"sslmode"`                 // SSL mode for the connection.
	ConnectTimeoutSeconds int        `yaml:"connect_timeout_seconds"` // Driver-level dial timeout. Zero leaves the driver default.
	Pool                  PoolConfig `yaml:"pool"`                    // Connection pool settings.
}

// String describes the connection without its password.
func (c DatabaseConfig) String() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Type, c.User, c.Host, c.Port, c.Database)
}

// Decode converts a raw adapter configuration (as read from YAML and environment overrides)
// into a DatabaseConfig. String values are converted to the field types, so
// port: "5432" from an environment variable decodes like port: 5432 from YAML.
func Decode(raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, err
	}
	if cfg.Type == "" {
		cfg.Type = "postgres"
	}
	if cfg.Type != "sqlite" {
		if cfg.Sslmode == "" {
			cfg.Sslmode = "disable"
		}
		if cfg.Port == 0 {
			switch cfg.Type {
			case "mysql":
				cfg.Port = 3306
			case "redshift":
				cfg.Port = 5439
			default:
				cfg.Port = 5432
			}
		}
	}
	return cfg, nil
}
