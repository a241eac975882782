// Package config loads the jobfs command configuration: logging, metrics
// and a list of named storage endpoints.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/nuln/jobfs"
)

// Config is the complete jobfs configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (JOBFS_*, e.g. JOBFS_LOGGING_LEVEL=DEBUG)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics controls Prometheus metrics export
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Endpoints are named storage endpoints usable with --endpoint
	Endpoints []Endpoint `mapstructure:"endpoints" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus cache metrics
	Enabled bool `mapstructure:"enabled"`

	// Textfile is where metrics are written on exit, in the format read by
	// the node exporter textfile collector
	Textfile string `mapstructure:"textfile" validate:"required_if=Enabled true"`
}

// Endpoint is a named storage endpoint.
type Endpoint struct {
	// Name identifies the endpoint on the command line
	Name string `mapstructure:"name" validate:"required"`

	Host     string `mapstructure:"host" validate:"omitempty,hostname_rfc1123|ip"`
	Port     string `mapstructure:"port" validate:"omitempty,numeric"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// Path is a base path or a full address (file://..., hdfs://...)
	Path string `mapstructure:"path"`

	// Options are extra driver options, passed through unchanged
	Options map[string]string `mapstructure:"options"`
}

// Descriptor returns the endpoint as a jobfs.Descriptor.
func (e Endpoint) Descriptor() jobfs.Descriptor {
	return jobfs.Descriptor{
		Host:     e.Host,
		Port:     e.Port,
		User:     e.User,
		Password: e.Password,
		Path:     e.Path,
	}
}

// ConnectOptions returns the options to connect the endpoint with. Extra
// options never override the descriptor fields.
func (e Endpoint) ConnectOptions() jobfs.Options {
	opts := jobfs.BuildOptions(e.Descriptor())
	for k, v := range e.Options {
		if _, set := opts[k]; !set {
			opts.Set(k, v)
		}
	}
	return opts
}

// Endpoint returns the endpoint called name.
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath, or one that does not exist, is not an error: the
// defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setupViper configures environment variables and the config file.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the JOBFS_ prefix and underscores.
	v.SetEnvPrefix("JOBFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("jobfs")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
