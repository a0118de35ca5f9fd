package batch

import (
	"errors"
	"fmt"
)

// ErrAsyncUnsupported is published for an asynchronous UpdateBatches when the
// update fetcher does not implement AsyncUpdateFetcher.
var ErrAsyncUnsupported = errors.New("update fetcher does not support async updates")

// ErrTooManyUpdates is published for an UpdateBatches rejected because
// ResourceLimits.MaxPendingUpdates was reached.
var ErrTooManyUpdates = errors.New("too many pending updates")

// FetchError is returned when a Fetcher fails.
type FetchError struct {
	Err error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch error: %v", e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// UpdateError is returned when an UpdateFetcher fails.
type UpdateError struct {
	Err error
}

func (e UpdateError) Error() string {
	return fmt.Sprintf("update error: %v", e.Err)
}

func (e UpdateError) Unwrap() error {
	return e.Err
}

// PanicError holds a value recovered from a panicking fetcher or key
// generator.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// OperationInProgressError is published when an UpdateBatches action reuses
// the OperationID of an update that has not finished.
type OperationInProgressError struct {
	OperationID string
}

func (e OperationInProgressError) Error() string {
	return fmt.Sprintf("operation %q is already in progress", e.OperationID)
}

func wrapFetchError(err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Err: err}
}

func wrapUpdateError(err error) error {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return err
	}
	return &UpdateError{Err: err}
}

// ErrNoUpdateFetcher is returned by helpers that need a Source with an
// update fetcher when the Source has none.
var ErrNoUpdateFetcher = errors.New("source has no update fetcher")
