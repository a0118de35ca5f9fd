package sync

import (
	"context"
	"sync"

	"github.com/MasterOfBinary/batchlist/batch"
)

// List owns a batch.Source and provides blocking operations on it. Create
// one with NewList or NewListWithUpdates and Close it when done.
type List[K comparable, D, P, U any] struct {
	src     *batch.Source[K, D, P, U]
	actions chan batch.Action
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewList creates a List over a Source without an update fetcher.
func NewList[K comparable, D, P any](fetcher batch.Fetcher[P, D], keys batch.KeyGenerator[K], opts *batch.Options) *List[K, D, P, batch.NoUpdate] {
	ctx, cancel := context.WithCancel(context.Background())
	actions := make(chan batch.Action)
	return &List[K, D, P, batch.NoUpdate]{
		src:     batch.New[K, D, P](ctx, actions, fetcher, keys, opts),
		actions: actions,
		cancel:  cancel,
	}
}

// NewListWithUpdates creates a List over a Source with an update fetcher.
func NewListWithUpdates[K comparable, D, P, U any](fetcher batch.Fetcher[P, D], updater batch.UpdateFetcher[K, D, U], keys batch.KeyGenerator[K], opts *batch.Options) *List[K, D, P, U] {
	ctx, cancel := context.WithCancel(context.Background())
	actions := make(chan batch.Action)
	return &List[K, D, P, U]{
		src:     batch.NewWithUpdates[K, D, P, U](ctx, actions, fetcher, updater, keys, opts),
		actions: actions,
		cancel:  cancel,
	}
}

// Source returns the underlying Source, for watching it or subscribing to
// its update outcomes.
func (l *List[K, D, P, U]) Source() *batch.Source[K, D, P, U] {
	return l.src
}

// State returns the current state of the list.
func (l *List[K, D, P, U]) State() batch.State[K, D] {
	return l.src.State()
}

// Reload reloads the list and blocks until the first page is loaded.
func (l *List[K, D, P, U]) Reload(ctx context.Context, params P) (batch.State[K, D], error) {
	if l.isClosed() {
		return l.src.State(), ErrClosed
	}
	return Reload(ctx, l.src, l.actions, params)
}

// LoadMore loads the next page and blocks until it is part of the list.
func (l *List[K, D, P, U]) LoadMore(ctx context.Context, params *P) (batch.State[K, D], error) {
	if l.isClosed() {
		return l.src.State(), ErrClosed
	}
	return LoadMore(ctx, l.src, l.actions, params)
}

// Update refreshes the batches with the given keys and blocks until the
// update completed.
func (l *List[K, D, P, U]) Update(ctx context.Context, keys []K, req U) (batch.UpdateResult[K, D], error) {
	if l.isClosed() {
		return batch.UpdateResult[K, D]{}, ErrClosed
	}
	return Update(ctx, l.src, l.actions, batch.NewUpdate(keys, req))
}

// Reset clears the list.
func (l *List[K, D, P, U]) Reset(ctx context.Context) error {
	if l.isClosed() {
		return ErrClosed
	}
	return Reset(ctx, l.src, l.actions)
}

// Close stops the Source and waits until its tasks have finished. Calls
// waiting on the List return ErrSourceStopped.
func (l *List[K, D, P, U]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.cancel()
	<-l.src.Done()
}

func (l *List[K, D, P, U]) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
