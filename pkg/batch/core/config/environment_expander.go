package config

import (
	"os"
	"regexp"
)

// EnvironmentExpander expands environment variable placeholders within configuration data.
type EnvironmentExpander interface {
	// Expand returns input with ${VAR} placeholders replaced by the values of the named variables.
	Expand(input []byte) ([]byte, error)
}

// placeholderPattern matches ${VAR} and ${VAR:-default}.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// OsEnvironmentExpander expands placeholders from the process environment.
// Only the braced form is recognized, so literal dollar signs in passwords or
// colors survive unchanged. Unset variables expand to their default, or to "".
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand replaces every placeholder in input. It never fails.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return placeholderPattern.ReplaceAllFunc(input, func(match []byte) []byte {
		groups := placeholderPattern.FindSubmatch(match)
		if value, ok := os.LookupEnv(string(groups[1])); ok && value != "" {
			return []byte(value)
		}
		return groups[3]
	}), nil
}
