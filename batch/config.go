package batch

import (
	"sync"
	"time"
)

// Config retrieves the config values used by Source. If these values are
// constant, NewConstantConfig can be used to create an implementation
// of the interface.
//
// The timeouts are read again before every fetch and update, so a dynamic
// Config can tune them while the Source is running. UpdateResultsBufferSize
// is read when a subscription is created.
type Config interface {
	// Get returns the values for configuration.
	//
	// If the config values may be modified while the Source is running,
	// Get must properly handle concurrency issues.
	Get() ConfigValues
}

// ConfigValues is a struct that contains the Source config values.
type ConfigValues struct {
	// FetchTimeout bounds a single FetchFirst or FetchNext call. A fetch
	// that times out fails like any other fetch; it is not retried.
	// Zero means no timeout.
	FetchTimeout time.Duration `toml:"fetch_timeout" json:"fetchTimeout"`

	// UpdateTimeout bounds a single FetchUpdate call. Zero means no timeout.
	UpdateTimeout time.Duration `toml:"update_timeout" json:"updateTimeout"`

	// UpdateResultsBufferSize is the number of update outcomes buffered for
	// each subscriber of UpdateResults. When a subscriber falls behind the
	// oldest buffered outcome is dropped.
	// Default: DefaultUpdateResultsBufferSize
	UpdateResultsBufferSize int `toml:"update_results_buffer_size" json:"updateResultsBufferSize"`
}

// NewConstantConfig returns a Config with constant values. If values
// is nil, the default values are used.
func NewConstantConfig(values *ConfigValues) *ConstantConfig {
	if values == nil {
		return &ConstantConfig{}
	}

	return &ConstantConfig{
		values: *values,
	}
}

// ConstantConfig is a Config with constant values. Create one with
// NewConstantConfig.
//
// This implementation is safe to use concurrently since the values
// never change after initialization.
type ConstantConfig struct {
	values ConfigValues
}

// Get implements the Config interface.
func (c *ConstantConfig) Get() ConfigValues {
	return c.values
}

// NewDynamicConfig creates a configuration that can be adjusted at runtime.
// If values is nil, the default values are used.
func NewDynamicConfig(values *ConfigValues) *DynamicConfig {
	if values == nil {
		return &DynamicConfig{}
	}

	return &DynamicConfig{
		values: *values,
	}
}

// DynamicConfig implements the Config interface with values that can be
// modified at runtime. It is safe for concurrent use.
type DynamicConfig struct {
	mu     sync.RWMutex
	values ConfigValues
}

// Get implements the Config interface.
func (c *DynamicConfig) Get() ConfigValues {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values
}

// UpdateTimeouts updates the fetch and update timeouts. It takes effect
// from the next fetch or update.
func (c *DynamicConfig) UpdateTimeouts(fetchTimeout, updateTimeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.FetchTimeout = fetchTimeout
	c.values.UpdateTimeout = updateTimeout
}

// Update replaces all configuration values at once.
func (c *DynamicConfig) Update(values ConfigValues) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = values
}

// fixConfig corrects invalid ConfigValues:
//   - Negative timeouts are treated as no timeout.
//   - A non-positive UpdateResultsBufferSize is replaced by the default.
func fixConfig(c ConfigValues) ConfigValues {
	if c.FetchTimeout < 0 {
		c.FetchTimeout = 0
	}
	if c.UpdateTimeout < 0 {
		c.UpdateTimeout = 0
	}
	if c.UpdateResultsBufferSize <= 0 {
		c.UpdateResultsBufferSize = DefaultUpdateResultsBufferSize
	}
	return c
}
