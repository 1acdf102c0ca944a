package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/storemap/pkg/batch/support/util/exception"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

const moduleName = "config"

// APIKeyEnvVar is the conventional environment variable holding the maps API key.
// It is consulted when storemap.frontend.api_key is not set.
const APIKeyEnvVar = "GOOGLE_MAPS_API_KEY"

var (
	hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	channelEntryTyp = reflect.TypeOf([]ChannelEntry{})
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig      // EmbeddedConfig contains the raw bytes of the configuration file.
	Expander       EnvironmentExpander `optional:"true"`
	EnvFilePath    string              `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from the embedded YAML and environment variables.
//
// Parameters:
//
//	envFilePath: The path to the .env file. Empty means ".env" in the working directory.
//	embeddedConfig: The embedded configuration bytes.
//	expander: Expands ${VAR} placeholders in the parsed YAML values.
//
// Returns:
//
//	A pointer to the loaded Config and an error if loading fails.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	// 1. Defaults.
	cfg := NewConfig()

	// 2. Embedded YAML decoded over the defaults. Placeholders are expanded in the parsed
	// scalar values, so an expanded value can never change the document structure.
	var root yaml.Node
	if err := yaml.Unmarshal(embeddedConfig, &root); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err)
	}
	if root.Kind != 0 {
		if err := expandNode(&root, expander); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err)
		}
		if err := root.Decode(cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to decode embedded config", err)
		}
	}
	if cfg.Storemap.Channels == nil {
		cfg.Storemap.Channels = DefaultChannels()
	}

	// 3. Environment overrides.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err)
	}
	if cfg.Storemap.Frontend.APIKey == "" {
		cfg.Storemap.Frontend.APIKey = os.Getenv(APIKeyEnvVar)
	}
	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads, validates and provides *Config.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Storemap.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Storemap.System.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from the embedded YAML, the .env file and the process environment.
// It is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, NewOsEnvironmentExpander())
}

// Validate checks the values the export run cannot work without.
// The returned error wraps exception.ErrInvalidConfig.
func (c *Config) Validate() error {
	sm := c.Storemap
	seen := make(map[int]struct{}, len(sm.Channels))
	for _, ch := range sm.Channels {
		if _, dup := seen[ch.ID]; dup {
			return invalidConfig("duplicate channel id %d", ch.ID)
		}
		seen[ch.ID] = struct{}{}
		if strings.TrimSpace(ch.Name) == "" {
			return invalidConfig("channel %d has no name", ch.ID)
		}
		if !hexColorPattern.MatchString(ch.Color) {
			return invalidConfig("channel %d color %q is not of the form #RRGGBB", ch.ID, ch.Color)
		}
	}
	if sm.Output.RecordsPath == "" {
		return invalidConfig("storemap.output.records_path must not be empty")
	}
	if sm.Frontend.Path == "" {
		return invalidConfig("storemap.frontend.path must not be empty")
	}
	if sm.Output.Map.Enabled {
		if sm.Output.Map.Path == "" {
			return invalidConfig("storemap.output.map.path must not be empty when the map is enabled")
		}
		if sm.Output.Map.Zoom < 0 || sm.Output.Map.Zoom > 20 {
			return invalidConfig("storemap.output.map.zoom %d is out of range 0-20", sm.Output.Map.Zoom)
		}
	}
	if sm.Output.Parquet.Enabled && sm.Output.Parquet.Path == "" {
		return invalidConfig("storemap.output.parquet.path must not be empty when parquet export is enabled")
	}
	if sm.Source.ConnectTimeoutSeconds < 0 {
		return invalidConfig("storemap.source.connect_timeout_seconds must not be negative")
	}
	if !isKnownExporter(sm.Tracing.Exporter) {
		return invalidConfig("unknown tracing exporter %q", sm.Tracing.Exporter)
	}
	if !isKnownExporter(sm.Metrics.Exporter) {
		return invalidConfig("unknown metrics exporter %q", sm.Metrics.Exporter)
	}
	return nil
}

func isKnownExporter(name string) bool {
	switch strings.ToLower(name) {
	case "", "none", "otlphttp", "otlpgrpc":
		return true
	}
	return false
}

func invalidConfig(format string, a ...interface{}) error {
	return exception.NewBatchError(moduleName, fmt.Sprintf(format, a...), exception.ErrInvalidConfig)
}

// expandNode expands ${VAR} placeholders in the scalar values below n. Mapping keys are left
// alone. A plain scalar loses its resolved tag so the expanded text is typed again
// (e.g., "${PG_PORT:-5432}" decodes as an int); quoted scalars stay strings whatever they hold.
func expandNode(n *yaml.Node, expander EnvironmentExpander) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range n.Content {
			if err := expandNode(child, expander); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := expandNode(n.Content[i], expander); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if !strings.Contains(n.Value, "${") {
			return nil
		}
		expanded, err := expander.Expand([]byte(n.Value))
		if err != nil {
			return err
		}
		n.Value = string(expanded)
		if n.Style&(yaml.TaggedStyle|yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			n.Tag = ""
		}
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// The variable name is built from the "yaml" tags along the path, upper-cased and joined by
// underscores (e.g., STOREMAP_OUTPUT_MAP_ENABLED).
//
// Parameters:
//
//	val: The reflect.Value of the struct to populate.
//	prefix: The prefix for environment variable names (e.g., "STOREMAP_").
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface {
			// Example: STOREMAP_ADAPTER_DATABASE_SOURCE_HOST=db.internal
			if err := loadAdapterConfigsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if field.Type() == channelEntryTyp {
			entries, err := parseChannelEntries(envValue)
			if err != nil {
				return fmt.Errorf("failed to parse env var '%s': %w", envVarName, err)
			}
			field.Set(reflect.ValueOf(entries))
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadAdapterConfigsFromEnv merges variables of the form <prefix><KIND>_<NAME>_<FIELD> into the
// raw adapter settings map as configs[kind][name][field] = value. Kind and name are single
// tokens; the field keeps its underscores (e.g., CONNECT_TIMEOUT -> connect_timeout).
func loadAdapterConfigsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	configs, ok := mapField.Interface().(map[string]interface{})
	if !ok {
		return nil
	}

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyParts := strings.SplitN(parts[0], "_", 3)
		if len(keyParts) < 3 {
			continue
		}
		kind := strings.ToLower(keyParts[0])
		name := strings.ToLower(keyParts[1])
		field := strings.ToLower(keyParts[2])

		kindMap := toStringMap(configs[kind])
		nameMap := toStringMap(kindMap[name])
		nameMap[field] = parts[1]
		kindMap[name] = nameMap
		configs[kind] = kindMap
	}
	return nil
}

// toStringMap returns v as a map[string]interface{}, converting yaml's generic maps. A nil or
// non-map value yields a new empty map.
func toStringMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out
	default:
		return map[string]interface{}{}
	}
}

// parseChannelEntries parses a channel table of the form "27:Blinkit:#D8C414,65:Swiggy:#EC822A".
func parseChannelEntries(value string) ([]ChannelEntry, error) {
	var entries []ChannelEntry
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fields := strings.SplitN(item, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("channel entry %q must be id:name:color", item)
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("channel entry %q has a non-integer id: %w", item, err)
		}
		entries = append(entries, ChannelEntry{
			ID:    id,
			Name:  strings.TrimSpace(fields[1]),
			Color: strings.TrimSpace(fields[2]),
		})
	}
	return entries, nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
