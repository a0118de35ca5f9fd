package batch

import (
	"fmt"

	"go.uber.org/zap"
)

// Options contains optional configuration for creating a new Source.
type Options struct {
	// Config provides timeouts and buffer sizes.
	// If nil, default configuration is used.
	Config Config

	// Limits defines resource constraints.
	// If nil, no resource limits are enforced.
	Limits *ResourceLimits

	// Logger receives structured logs about actions, fetches and updates.
	// If nil, nothing is logged.
	Logger *zap.Logger

	// Stats collects statistics.
	// If nil, no statistics are collected.
	Stats StatsCollector
}

// WithDefaults returns Options with default values where not specified.
// It does not modify o.
func (o *Options) WithDefaults() *Options {
	var opts Options
	if o != nil {
		opts = *o
	}

	if opts.Config == nil {
		opts.Config = NewConstantConfig(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Stats == nil {
		opts.Stats = &NoOpStatsCollector{}
	}

	return &opts
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o == nil || o.Limits == nil {
		return nil
	}
	if err := o.Limits.Validate(); err != nil {
		return fmt.Errorf("invalid resource limits: %w", err)
	}
	return nil
}
