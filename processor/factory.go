package processor

import (
	"errors"
	"fmt"

	"github.com/MasterOfBinary/batchlist/batch"
)

// TransformConfig provides configuration options for creating a Transform
// update fetcher.
type TransformConfig[D, U any] struct {
	// Func is the transformation function to apply to each batch's Data.
	// This field is required.
	Func TransformFunc[D, U]

	// ContinueOnError determines whether to keep transforming batches after
	// a transformation error.
	// If true, batches whose transformation failed keep their data.
	// If false, the update fails with the first error.
	ContinueOnError bool
}

// Validate checks if the TransformConfig is valid.
func (c TransformConfig[D, U]) Validate() error {
	if c.Func == nil {
		return errors.New("transformation function cannot be nil")
	}
	return nil
}

// NewTransform creates a new Transform update fetcher with the given
// configuration. It validates the configuration and returns an error if
// invalid.
//
// Example:
//
//	fetcher, err := processor.NewTransform[int](processor.TransformConfig[[]Coin, Quote]{
//		Func: func(ctx context.Context, coins []Coin, q Quote) ([]Coin, error) {
//			// Transform logic here
//			return coins, nil
//		},
//		ContinueOnError: true,
//	})
//	if err != nil {
//		// handle error
//	}
func NewTransform[K comparable, D, U any](config TransformConfig[D, U]) (*Transform[K, D, U], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transform config: %w", err)
	}

	return &Transform[K, D, U]{
		Func:        config.Func,
		StopOnError: !config.ContinueOnError,
	}, nil
}

// FilterConfig provides configuration options for creating a Filter update
// fetcher.
type FilterConfig[K comparable, D, U any] struct {
	// Fetcher does the actual update. This field is required.
	Fetcher batch.UpdateFetcher[K, D, U]

	// Predicate is a function that returns true for batches that should be
	// updated. This field is required.
	Predicate FilterFunc[K, D, U]

	// InvertMatch inverts the predicate logic.
	InvertMatch bool
}

// Validate checks if the FilterConfig is valid.
func (c FilterConfig[K, D, U]) Validate() error {
	if c.Fetcher == nil {
		return errors.New("update fetcher cannot be nil")
	}
	if c.Predicate == nil {
		return errors.New("filter predicate cannot be nil")
	}
	return nil
}

// NewFilter creates a new Filter update fetcher with the given
// configuration. It validates the configuration and returns an error if
// invalid.
func NewFilter[K comparable, D, U any](config FilterConfig[K, D, U]) (*Filter[K, D, U], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}

	return &Filter[K, D, U]{
		Fetcher:     config.Fetcher,
		Predicate:   config.Predicate,
		InvertMatch: config.InvertMatch,
	}, nil
}
