package batch

import (
	"errors"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// ResourceLimits defines limits on the work a Source runs at once.
type ResourceLimits struct {
	// MaxConcurrentUpdates limits the number of update fetches running at
	// the same time, on top of the key overlap rule. Updates over the limit
	// stay started but wait for a slot before calling the fetcher.
	// A value of 0 means no limit.
	MaxConcurrentUpdates int64 `toml:"max_concurrent_updates"`

	// MaxPendingUpdates limits the number of update jobs, waiting or
	// running, that a Source tracks. An UpdateBatches over the limit is
	// rejected and an outcome with ErrTooManyUpdates is published.
	// A value of 0 means no limit.
	MaxPendingUpdates int `toml:"max_pending_updates"`
}

// DefaultResourceLimits returns resource limits based on the number of CPUs.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxConcurrentUpdates: int64(runtime.NumCPU() * 4),
		MaxPendingUpdates:    1024,
	}
}

// Validate checks if the resource limits are valid.
func (r ResourceLimits) Validate() error {
	var err error
	if r.MaxConcurrentUpdates < 0 {
		err = multierr.Append(err, errors.New("MaxConcurrentUpdates cannot be negative"))
	}
	if r.MaxPendingUpdates < 0 {
		err = multierr.Append(err, errors.New("MaxPendingUpdates cannot be negative"))
	}
	return err
}

// newUpdateLimiter returns the semaphore bounding concurrent update fetches,
// or nil if there is no limit.
func newUpdateLimiter(limits *ResourceLimits) *semaphore.Weighted {
	if limits == nil || limits.MaxConcurrentUpdates <= 0 {
		return nil
	}
	return semaphore.NewWeighted(limits.MaxConcurrentUpdates)
}
