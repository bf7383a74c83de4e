// Package settings loads the connection and query settings of the ORM.
//
// Values are layered, later sources overriding earlier ones:
//
//  1. built-in defaults
//  2. the YAML config file (orm.yaml)
//  3. ORM_* environment variables (ORM_QUERY_TIMEOUT -> query_timeout)
package settings

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "orm.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ORM_"

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// Settings configures the database layer and the query provider.
type Settings struct {
	// Schema every mapped table is placed in.
	Schema string `koanf:"schema" json:"schema" yaml:"schema"`

	// QueryTimeout bounds each statement. Zero disables the bound.
	QueryTimeout time.Duration `koanf:"query_timeout" json:"query_timeout" yaml:"query_timeout"`

	Driver string `koanf:"driver" json:"driver" yaml:"driver"`

	// DSN is the driver connection string. ${VAR} references are expanded
	// from the environment.
	DSN string `koanf:"dsn" json:"dsn" yaml:"dsn"`

	// CacheSize is the number of rendered commands kept per provider.
	CacheSize int `koanf:"cache_size" json:"cache_size" yaml:"cache_size"`
}

// Defaults returns the settings used when no source overrides them.
func Defaults() Settings {
	return Settings{
		Schema:       "public",
		QueryTimeout: 30 * time.Second,
		Driver:       DriverPostgres,
		CacheSize:    256,
	}
}

// ValidationError reports an invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that the settings can open a database.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Schema) == "" {
		return &ValidationError{Field: "schema", Message: "must not be empty"}
	}
	switch s.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return &ValidationError{Field: "driver",
			Message: fmt.Sprintf("unknown driver %q (expected %s or %s)", s.Driver, DriverPostgres, DriverSQLite)}
	}
	if s.QueryTimeout < 0 {
		return &ValidationError{Field: "query_timeout", Message: "must not be negative"}
	}
	if s.CacheSize < 0 {
		return &ValidationError{Field: "cache_size", Message: "must not be negative"}
	}
	return nil
}

// Load reads settings from defaults, the config file at path and the
// environment, then validates them. An empty path looks for DefaultFile
// in the working directory and skips the file layer when it is absent;
// an explicit path must exist.
func Load(path string) (Settings, error) {
	k := koanf.New(".")

	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]any{
		"schema":        d.Schema,
		"query_timeout": d.QueryTimeout.String(),
		"driver":        d.Driver,
		"dsn":           d.DSN,
		"cache_size":    d.CacheSize,
	}, "."), nil); err != nil {
		return Settings{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("load env vars: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.DSN = expandEnvVars(s.DSN)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the value of VAR. Unset variables
// are left as they are.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
