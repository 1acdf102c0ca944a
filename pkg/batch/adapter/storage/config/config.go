package config

import (
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key for GCS. Empty uses application default credentials.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	Prefix          string `yaml:"prefix"`           // Object name prefix prepended to every object (e.g., "site/").
	CacheControl    string `yaml:"cache_control"`    // Cache-Control metadata for uploaded objects.
}

// ObjectName joins the configured prefix and objectName with a single slash.
func (c StorageConfig) ObjectName(objectName string) string {
	if c.Prefix == "" {
		return objectName
	}
	return path.Join(strings.Trim(c.Prefix, "/"), objectName)
}

// Decode converts a raw adapter configuration into a StorageConfig.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
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
	return cfg, nil
}
