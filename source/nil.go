package source

import (
	"context"
	"time"

	"github.com/MasterOfBinary/batchlist/batch"
)

// Nil is a batch.Fetcher that doesn't return any data. Every fetch waits
// for Duration and then returns an empty last page. It can be used as a
// mock Fetcher.
type Nil[P, D any] struct {
	Duration time.Duration
}

// NewNil creates a new Nil fetcher that waits for d on every fetch.
func NewNil[P, D any](d time.Duration) *Nil[P, D] {
	return &Nil[P, D]{Duration: d}
}

// FetchFirst implements the batch.Fetcher interface.
func (f *Nil[P, D]) FetchFirst(ctx context.Context, _ P) (batch.FetchResult[D], error) {
	return f.wait(ctx)
}

// FetchNext implements the batch.Fetcher interface.
func (f *Nil[P, D]) FetchNext(ctx context.Context, _ *P, _ batch.FetchResult[D]) (batch.FetchResult[D], error) {
	return f.wait(ctx)
}

func (f *Nil[P, D]) wait(ctx context.Context) (batch.FetchResult[D], error) {
	if f.Duration > 0 {
		timer := time.NewTimer(f.Duration)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return batch.FetchResult[D]{}, ctx.Err()
		}
	}

	var zero D
	return batch.Success(zero, true, true), nil
}
