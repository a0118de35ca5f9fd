package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/MasterOfBinary/batchlist/batch"
)

// Error is a batch.Fetcher that fails every fetch with Err. It is useful for
// testing how a list shows loading errors.
type Error[P, D any] struct {
	// Err is returned by every fetch.
	Err error
}

// ErrorConfig provides configuration options for creating an Error fetcher.
type ErrorConfig struct {
	// Err is the error returned by every fetch. This field is required.
	Err error
}

// Validate checks if the ErrorConfig is valid.
func (c ErrorConfig) Validate() error {
	if c.Err == nil {
		return errors.New("error cannot be nil")
	}
	return nil
}

// NewError creates a new Error fetcher with the given configuration.
// It validates the configuration and returns an error if invalid.
//
// Example:
//
//	f, err := source.NewError[string, []Coin](source.ErrorConfig{
//		Err: errors.New("offline"),
//	})
//	if err != nil {
//		// handle error
//	}
func NewError[P, D any](config ErrorConfig) (*Error[P, D], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid error config: %w", err)
	}
	return &Error[P, D]{Err: config.Err}, nil
}

// FetchFirst implements the batch.Fetcher interface.
func (f *Error[P, D]) FetchFirst(ctx context.Context, _ P) (batch.FetchResult[D], error) {
	return f.fail(ctx)
}

// FetchNext implements the batch.Fetcher interface.
func (f *Error[P, D]) FetchNext(ctx context.Context, _ *P, _ batch.FetchResult[D]) (batch.FetchResult[D], error) {
	return f.fail(ctx)
}

func (f *Error[P, D]) fail(ctx context.Context) (batch.FetchResult[D], error) {
	if err := ctx.Err(); err != nil {
		return batch.FetchResult[D]{}, err
	}
	return batch.Failure[D](f.Err), nil
}
