package processor

import (
	"context"

	"github.com/MasterOfBinary/batchlist/batch"
)

// FilterFunc decides whether a batch is passed on to the wrapped update
// fetcher. Return true to keep the batch, false to filter it out.
type FilterFunc[K comparable, D, U any] func(b batch.Batch[K, D], req U) bool

// Filter is an update fetcher that only passes the batches matching a
// predicate on to another update fetcher. Batches that are filtered out are
// left unmodified.
type Filter[K comparable, D, U any] struct {
	// Fetcher does the actual update. If nil, nothing is updated.
	Fetcher batch.UpdateFetcher[K, D, U]

	// Predicate is a function that returns true for batches that should be
	// updated.
	// If nil, no filtering occurs (all batches are updated).
	Predicate FilterFunc[K, D, U]

	// InvertMatch inverts the predicate logic: if true, batches matching
	// the predicate will be left out instead of kept.
	// Default is false (keep matching batches).
	InvertMatch bool
}

// FetchUpdate implements the batch.UpdateFetcher interface. When no batch
// passes the filter the wrapped fetcher is not called.
func (p *Filter[K, D, U]) FetchUpdate(ctx context.Context, toUpdate []batch.Batch[K, D], req U) ([]batch.Batch[K, D], error) {
	if p.Fetcher == nil {
		return nil, nil
	}
	if p.Predicate == nil {
		return p.Fetcher.FetchUpdate(ctx, toUpdate, req)
	}

	kept := make([]batch.Batch[K, D], 0, len(toUpdate))
	for _, b := range toUpdate {
		if p.Predicate(b, req) != p.InvertMatch {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	return p.Fetcher.FetchUpdate(ctx, kept, req)
}
