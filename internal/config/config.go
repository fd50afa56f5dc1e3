// Package config provides configuration management for polyframe namespaces.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// POLYFRAME_ environment variables, then explicitly set command-line flags.
// The result can be installed as the process-wide configuration that
// namespaces read when they are created.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/paveg/polyframe/internal/logging"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads
const EnvPrefix = "POLYFRAME_"

// Config represents the global configuration for polyframe namespaces
type Config struct {
	// Parallel evaluation
	ParallelThreshold int `koanf:"parallel_threshold" yaml:"parallel_threshold"` // Minimum rows before select evaluates expressions concurrently
	MaxParallelism    int `koanf:"max_parallelism" yaml:"max_parallelism"`       // Upper bound on concurrently evaluated expressions

	// API dialect used when a namespace is built without an explicit version
	APIVersion string `koanf:"api_version" yaml:"api_version"`

	// Lazy backend
	SQLiteDSN string `koanf:"sqlite_dsn" yaml:"sqlite_dsn"`

	// Diagnostics
	LogLevel          string `koanf:"log_level" yaml:"log_level"`
	LogFormat         string `koanf:"log_format" yaml:"log_format"`
	MetricsCollection bool   `koanf:"metrics_collection" yaml:"metrics_collection"`
}

// Default configuration values
const (
	DefaultParallelThreshold = 1000
	DefaultMaxParallelism    = 16
	DefaultAPIVersion        = "main"
	DefaultSQLiteDSN         = "file::memory:?cache=shared"
	DefaultLogLevel          = "warn"
	DefaultLogFormat         = "text"
)

// Global configuration instance
var (
	globalConfig = NewConfig()
	configMutex  sync.RWMutex
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		MaxParallelism:    DefaultMaxParallelism,
		APIVersion:        DefaultAPIVersion,
		SQLiteDSN:         DefaultSQLiteDSN,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

func defaultsMap() map[string]any {
	d := NewConfig()
	return map[string]any{
		"parallel_threshold": d.ParallelThreshold,
		"max_parallelism":    d.MaxParallelism,
		"api_version":        d.APIVersion,
		"sqlite_dsn":         d.SQLiteDSN,
		"log_level":          d.LogLevel,
		"log_format":         d.LogFormat,
		"metrics_collection": d.MetricsCollection,
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and POLYFRAME_ environment variables, in that order.
func Load(path string) (Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with a final layer of command-line flags. Only flags
// the user set and whose kebab-case name matches a setting are applied.
func LoadWithFlags(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// POLYFRAME_PARALLEL_THRESHOLD -> parallel_threshold
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		known := defaultsMap()
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := known[key]; !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}

	if c.MaxParallelism <= 0 {
		return fmt.Errorf("MaxParallelism must be positive, got %d", c.MaxParallelism)
	}

	switch c.APIVersion {
	case "", "main", "v1":
	default:
		return fmt.Errorf("APIVersion must be \"main\" or \"v1\", got %q", c.APIVersion)
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("LogFormat must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LogLevel must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = defaults.MaxParallelism
	}
	if c.APIVersion == "" {
		c.APIVersion = defaults.APIVersion
	}
	if c.SQLiteDSN == "" {
		c.SQLiteDSN = defaults.SQLiteDSN
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}

	return c
}

// Dump writes the configuration as YAML
func (c Config) Dump(w io.Writer) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return enc.Close()
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}
