package batch

import "context"

// Fetcher loads pages. It is supplied by the caller; the Source only decides
// when to call it.
//
// Both methods should respect context cancellation. A returned error, a
// FetchResult with Err set and a panic are all turned into a failed
// FetchResult, so a misbehaving Fetcher never stops the Source.
type Fetcher[P, D any] interface {
	// FetchFirst loads the first page for params.
	FetchFirst(ctx context.Context, params P) (FetchResult[D], error)

	// FetchNext loads the page after last, the most recent successful
	// result. params is nil unless the LoadMore action carried new params.
	FetchNext(ctx context.Context, params *P, last FetchResult[D]) (FetchResult[D], error)
}

// FetcherFuncs adapts two functions to the Fetcher interface.
type FetcherFuncs[P, D any] struct {
	First func(ctx context.Context, params P) (FetchResult[D], error)
	Next  func(ctx context.Context, params *P, last FetchResult[D]) (FetchResult[D], error)
}

// FetchFirst implements the Fetcher interface.
func (f FetcherFuncs[P, D]) FetchFirst(ctx context.Context, params P) (FetchResult[D], error) {
	return f.First(ctx, params)
}

// FetchNext implements the Fetcher interface.
func (f FetcherFuncs[P, D]) FetchNext(ctx context.Context, params *P, last FetchResult[D]) (FetchResult[D], error) {
	return f.Next(ctx, params, last)
}

// UpdateFetcher produces refreshed data for a subset of the loaded batches.
//
// The returned batches replace the loaded batches with the same key. Keys
// that were not requested are ignored, and requested keys missing from the
// result are left unmodified.
type UpdateFetcher[K comparable, D, U any] interface {
	FetchUpdate(ctx context.Context, toUpdate []Batch[K, D], req U) ([]Batch[K, D], error)
}

// UpdateFetcherFunc adapts a function to the UpdateFetcher interface.
type UpdateFetcherFunc[K comparable, D, U any] func(ctx context.Context, toUpdate []Batch[K, D], req U) ([]Batch[K, D], error)

// FetchUpdate implements the UpdateFetcher interface.
func (f UpdateFetcherFunc[K, D, U]) FetchUpdate(ctx context.Context, toUpdate []Batch[K, D], req U) ([]Batch[K, D], error) {
	return f(ctx, toUpdate, req)
}

// Applier applies one incremental update during an asynchronous update. fn
// receives the current state of the requested batches and returns the
// refreshed ones. Each call is merged and published as a separate outcome.
type Applier[K comparable, D any] func(fn func(current []Batch[K, D]) ([]Batch[K, D], error))

// AsyncUpdateFetcher is implemented by update fetchers that can handle
// UpdateBatches actions with Async set. Such updates are not gated on other
// updates; instead the fetcher pushes its results through apply, which reads
// the latest state of the batches every time it is called.
type AsyncUpdateFetcher[K comparable, D, U any] interface {
	UpdateFetcher[K, D, U]

	FetchUpdateAsync(ctx context.Context, toUpdate []Batch[K, D], req U, apply Applier[K, D]) error
}

// KeyGenerator creates the key of a newly loaded batch. existing holds the
// keys of the batches already loaded, in load order; it is empty for the
// first page.
type KeyGenerator[K comparable] interface {
	NextKey(existing []K) K
}

// KeyGeneratorFunc adapts a function to the KeyGenerator interface.
type KeyGeneratorFunc[K comparable] func(existing []K) K

// NextKey implements the KeyGenerator interface.
func (f KeyGeneratorFunc[K]) NextKey(existing []K) K {
	return f(existing)
}

// NoUpdate is the update request type of a Source created without an
// UpdateFetcher.
type NoUpdate struct{}
