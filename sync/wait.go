package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MasterOfBinary/batchlist/batch"
)

// WaitFor blocks until the state of src satisfies pred and returns that
// state. Intermediate states may be skipped, so pred should describe a state
// that holds until the next action.
func WaitFor[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], pred func(batch.State[K, D]) bool) (batch.State[K, D], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	last := src.State()
	for state := range src.Watch(ctx) {
		if pred(state) {
			return state, nil
		}
		last = state
	}

	if err := ctx.Err(); err != nil {
		return last, err
	}
	return last, ErrSourceStopped
}

// Reload reloads the list with params and blocks until the first page is
// loaded. A failed first page is returned as the error.
func Reload[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], actions chan<- batch.Action, params P) (batch.State[K, D], error) {
	before := src.State().Epoch()
	if err := send(ctx, src, actions, batch.NewReload(params)); err != nil {
		return src.State(), err
	}

	state, err := WaitFor(ctx, src, func(s batch.State[K, D]) bool {
		return s.Epoch() > before && s.Status.Kind != batch.StatusInitialLoading
	})
	if err != nil {
		return state, err
	}

	switch state.Status.Kind {
	case batch.StatusInitialLoadingError:
		return state, state.Status.Err
	case batch.StatusNone:
		return state, ErrReloaded
	}
	return state, nil
}

// LoadMore loads the next page and blocks until it is part of the state. A
// failed page is returned as the error; the list keeps its pages and the
// next LoadMore retries.
//
// LoadMore returns ErrCannotLoadMore right away when the status doesn't allow
// another page: before the first page, while another page loads, and at the
// end of pagination unless params is set.
func LoadMore[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], actions chan<- batch.Action, params *P) (batch.State[K, D], error) {
	before := src.State()
	switch kind := before.Status.Kind; {
	case kind == batch.StatusPaginating:
	case kind == batch.StatusEndOfPagination && params != nil:
	default:
		return before, fmt.Errorf("%w: list is in status %s", ErrCannotLoadMore, kind)
	}

	if err := send(ctx, src, actions, batch.NewLoadMore(params)); err != nil {
		return src.State(), err
	}

	state, err := WaitFor(ctx, src, func(s batch.State[K, D]) bool {
		return s.Epoch() != before.Epoch() || s.Fetches() > before.Fetches()
	})
	if err != nil {
		return state, err
	}
	if state.Epoch() != before.Epoch() {
		return state, ErrReloaded
	}
	if err := state.Status.LastResult.Err; err != nil && state.Status.Kind == batch.StatusPaginating {
		return state, err
	}
	return state, nil
}

// Update sends a and blocks until its outcome is published. If a has no
// OperationID, a random one is set to find the outcome. When ctx ends first,
// the update is cancelled.
func Update[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], actions chan<- batch.Action, a batch.UpdateBatches[K, U]) (batch.UpdateResult[K, D], error) {
	var zero batch.UpdateResult[K, D]
	if !src.Updatable() {
		return zero, batch.ErrNoUpdateFetcher
	}
	if a.Async {
		return zero, ErrAsyncUpdate
	}

	state := src.State()
	if state.Status.Kind == batch.StatusInitialLoading {
		return zero, ErrReloadActive
	}
	if a.OperationID == "" {
		a.OperationID = uuid.NewString()
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	outcomes := src.OperationResults(subCtx, a.OperationID)
	states := src.Watch(subCtx)

	if err := send(ctx, src, actions, a); err != nil {
		return zero, err
	}

	for {
		select {
		case o, ok := <-outcomes:
			if !ok {
				return zero, stopped(ctx)
			}
			if o.OperationID == a.OperationID {
				return o.Result, o.Result.Err
			}
		case s, ok := <-states:
			if ok && s.Epoch() != state.Epoch() {
				return zero, ErrReloaded
			}
			if !ok {
				states = nil
			}
		case <-ctx.Done():
			cancelUpdate(src, actions, a.OperationID)
			return zero, ctx.Err()
		}
	}
}

// Reset returns the list to its initial state and blocks until it has.
func Reset[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], actions chan<- batch.Action) error {
	before := src.State().Epoch()
	if err := send(ctx, src, actions, batch.Reset{}); err != nil {
		return err
	}
	_, err := WaitFor(ctx, src, func(s batch.State[K, D]) bool {
		return s.Epoch() > before
	})
	return err
}

func send[K comparable, D, P, U any](ctx context.Context, src *batch.Source[K, D, P, U], actions chan<- batch.Action, a batch.Action) error {
	select {
	case actions <- a:
		return nil
	case <-src.Done():
		return ErrSourceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cancelUpdate[K comparable, D, P, U any](src *batch.Source[K, D, P, U], actions chan<- batch.Action, operationID string) {
	a := batch.NewCancelUpdates(func(u batch.UpdateBatches[K, U]) bool {
		return u.OperationID == operationID
	})
	select {
	case actions <- a:
	case <-src.Done():
	}
}

func stopped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSourceStopped
}
