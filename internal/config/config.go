// Package config loads the configuration of the batchlist demo server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/MasterOfBinary/batchlist/batch"
)

// EnvConfigPath names the environment variable holding the path of the
// configuration file.
const EnvConfigPath = "BATCHLIST_CONFIG_PATH"

// Config provides all configuration for the demo server.
type Config struct {
	// Redis is the configuration of the Redis server holding the lists.
	Redis RedisConfig `toml:"Redis"`
	// HTTP is the configuration of the HTTP server.
	HTTP HTTPConfig `toml:"HTTP"`
	// Source is the configuration of the list engine.
	Source SourceConfig `toml:"Source"`
	// Log is the configuration of the logger.
	Log LogConfig `toml:"Log"`
}

// RedisConfig provides the configuration of the Redis client.
type RedisConfig struct {
	// Addr is the address of the Redis server, like "127.0.0.1:6379".
	Addr string `toml:"Addr"`
	// DB is the Redis database number.
	DB int `toml:"DB"`
	// KeyPrefix is prepended to list names to get their Redis key.
	KeyPrefix string `toml:"KeyPrefix"`
	// ItemPrefix is prepended to item ids to get the Redis key of an item.
	ItemPrefix string `toml:"ItemPrefix"`
}

// HTTPConfig provides the configuration of the HTTP server.
type HTTPConfig struct {
	// Addr is the listen address, like ":8080".
	Addr string `toml:"Addr"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout Duration `toml:"ShutdownTimeout"`
}

// SourceConfig provides the configuration of the list engine.
type SourceConfig struct {
	// FirstLimit is the number of items on the first page.
	FirstLimit int `toml:"FirstLimit"`
	// Limit is the number of items on every later page.
	Limit int `toml:"Limit"`
	// FetchTimeout bounds each page fetch. Zero means no timeout.
	FetchTimeout Duration `toml:"FetchTimeout"`
	// UpdateTimeout bounds each update. Zero means no timeout.
	UpdateTimeout Duration `toml:"UpdateTimeout"`
	// UpdateResultsBufferSize is the buffer of each update outcome
	// subscription.
	UpdateResultsBufferSize int `toml:"UpdateResultsBufferSize"`
	// MaxConcurrentUpdates limits the updates running at the same time.
	MaxConcurrentUpdates int64 `toml:"MaxConcurrentUpdates"`
	// MaxPendingUpdates limits the updates waiting or running.
	MaxPendingUpdates int `toml:"MaxPendingUpdates"`
}

// LogConfig provides the configuration of the logger.
type LogConfig struct {
	// Level is the minimum level logged (debug, info, warn, error).
	Level string `toml:"Level"`
	// Development enables the human-friendly development logger.
	Development bool `toml:"Development"`
}

// Duration is a time.Duration written as a string like "1.5s" in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used for settings missing from the
// file.
func Default() Config {
	return Config{
		Redis: RedisConfig{
			Addr:       "127.0.0.1:6379",
			KeyPrefix:  "batchlist:list:",
			ItemPrefix: "batchlist:item:",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Source: SourceConfig{
			FirstLimit:              50,
			Limit:                   20,
			FetchTimeout:            Duration(5 * time.Second),
			UpdateTimeout:           Duration(5 * time.Second),
			UpdateResultsBufferSize: 16,
			MaxConcurrentUpdates:    4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the TOML file named by
// BATCHLIST_CONFIG_PATH, or config.toml if it is not set.
func LoadConfig() (*Config, error) {
	filepath, ok := os.LookupEnv(EnvConfigPath)
	if !ok {
		filepath = "config.toml"
	}
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads configuration from TOML bytes on top of
// Default. It returns an error if the data cannot be parsed or the result is
// invalid.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	config := Default()
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var err error
	if c.Redis.Addr == "" {
		err = multierr.Append(err, errors.New("redis addr is required"))
	}
	if c.HTTP.Addr == "" {
		err = multierr.Append(err, errors.New("http addr is required"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("http shutdown timeout must be non-negative, got %s", time.Duration(c.HTTP.ShutdownTimeout)))
	}
	if c.Source.Limit <= 0 {
		err = multierr.Append(err, fmt.Errorf("source limit must be positive, got %d", c.Source.Limit))
	}
	if c.Source.FirstLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("source first limit must be non-negative, got %d", c.Source.FirstLimit))
	}
	if e := c.Source.Limits().Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("source limits: %w", e))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	return err
}

// Values returns the engine configuration.
func (s SourceConfig) Values() batch.ConfigValues {
	return batch.ConfigValues{
		FetchTimeout:            time.Duration(s.FetchTimeout),
		UpdateTimeout:           time.Duration(s.UpdateTimeout),
		UpdateResultsBufferSize: s.UpdateResultsBufferSize,
	}
}

// Limits returns the engine resource limits.
func (s SourceConfig) Limits() *batch.ResourceLimits {
	return &batch.ResourceLimits{
		MaxConcurrentUpdates: s.MaxConcurrentUpdates,
		MaxPendingUpdates:    s.MaxPendingUpdates,
	}
}
