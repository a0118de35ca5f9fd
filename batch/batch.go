package batch

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Source owns a list of loaded batches and drives it from a channel of
// actions. K is the batch key type, D the page data type, P the request
// params type and U the update request type.
//
// A Source is created with New or NewWithUpdates and runs until the context
// passed to the constructor ends. Actions are read from the action channel
// one at a time, in order. Fetches and updates run on background goroutines
// and commit their results to the state, which can be read with State or
// followed with Watch. Every completed update is published to the
// subscribers of UpdateResults.
//
// A simple way to load and show a list:
//
//	actions := make(chan batch.Action)
//	src := batch.New[int64, []Item, Query](ctx, actions, fetcher, keys.NewSequence(1), nil)
//
//	go func() {
//		for state := range src.Watch(ctx) {
//			render(state)
//		}
//	}()
//
//	actions <- batch.NewReload(Query{Term: "btc"})
//	// Later, when the user scrolls to the end:
//	actions <- batch.NewLoadMore[Query](nil)
//
// When the context ends every running task is cancelled, the state is reset
// to its initial value, subscriptions are closed and Done is closed. A Source
// cannot be restarted.
type Source[K comparable, D, P, U any] struct {
	fetcher Fetcher[P, D]
	updater UpdateFetcher[K, D, U]
	keys    KeyGenerator[K]

	config  Config
	limits  ResourceLimits
	limiter *semaphore.Weighted
	logger  *zap.Logger
	stats   StatsCollector

	store   *stateStore[K, D]
	jobs    *jobTable[K, U]
	updates *broadcaster[UpdateOutcome[K, D, U]]
	group   errgroup.Group
	done    chan struct{}

	// Only accessed by the control loop.
	reloadTask   *task
	loadMoreTask *task
	lastJobID    uint64
}

// task is a running Reload or LoadMore.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) active() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// New creates a Source without an update fetcher and starts its control
// loop. UpdateBatches actions sent to it are ignored.
//
// fetcher and keys must not be nil. If opts is nil, default options are used.
func New[K comparable, D, P any](ctx context.Context, actions <-chan Action, fetcher Fetcher[P, D], keys KeyGenerator[K], opts *Options) *Source[K, D, P, NoUpdate] {
	return newSource[K, D, P, NoUpdate](ctx, actions, fetcher, nil, keys, opts)
}

// NewWithUpdates creates a Source that applies UpdateBatches actions with
// updater and starts its control loop.
//
// fetcher, updater and keys must not be nil. If opts is nil, default options
// are used.
func NewWithUpdates[K comparable, D, P, U any](ctx context.Context, actions <-chan Action, fetcher Fetcher[P, D], updater UpdateFetcher[K, D, U], keys KeyGenerator[K], opts *Options) *Source[K, D, P, U] {
	if updater == nil {
		panic("batch: update fetcher cannot be nil")
	}
	return newSource(ctx, actions, fetcher, updater, keys, opts)
}

func newSource[K comparable, D, P, U any](ctx context.Context, actions <-chan Action, fetcher Fetcher[P, D], updater UpdateFetcher[K, D, U], keys KeyGenerator[K], opts *Options) *Source[K, D, P, U] {
	if fetcher == nil {
		panic("batch: fetcher cannot be nil")
	}
	if keys == nil {
		panic("batch: key generator cannot be nil")
	}

	o := opts.WithDefaults()
	s := &Source[K, D, P, U]{
		fetcher: fetcher,
		updater: updater,
		keys:    keys,
		config:  o.Config,
		limiter: newUpdateLimiter(o.Limits),
		logger:  o.Logger,
		stats:   o.Stats,
		store:   newStateStore[K, D](),
		jobs:    newJobTable[K, U](),
		updates: newBroadcaster[UpdateOutcome[K, D, U]](),
		done:    make(chan struct{}),
	}
	if o.Limits != nil {
		s.limits = *o.Limits
	}
	if err := o.Validate(); err != nil {
		s.logger.Warn("Invalid options, negative limits are ignored", zap.Error(err))
	}

	go s.run(ctx, actions)
	return s
}

// State returns the most recently committed state.
func (s *Source[K, D, P, U]) State() State[K, D] {
	return s.store.load().state
}

// Watch returns a channel that receives the current state and every later
// state. A receiver that falls behind only sees the latest state; states in
// between are skipped.
//
// The channel is closed when ctx ends, or after the Source has stopped and
// the final, empty state was sent.
func (s *Source[K, D, P, U]) Watch(ctx context.Context) <-chan State[K, D] {
	return s.store.watch(ctx, s.done)
}

// UpdateResults returns a channel that receives the outcome of every update
// completed from now on, successful or not. The channel buffers
// ConfigValues.UpdateResultsBufferSize outcomes; when it is full the oldest
// buffered outcome is dropped.
//
// The channel is closed when ctx ends or the Source stops.
func (s *Source[K, D, P, U]) UpdateResults(ctx context.Context) <-chan UpdateOutcome[K, D, U] {
	size := fixConfig(s.config.Get()).UpdateResultsBufferSize
	return s.updates.subscribe(ctx, size)
}

// OperationResults returns a channel that receives only the outcomes of the
// updates whose OperationID is operationID, including the rejection of a
// duplicate. Outcomes of other updates never displace them, so the single
// outcome of a synchronous update is not lost while the caller is busy. The
// channel buffers ConfigValues.UpdateResultsBufferSize outcomes.
//
// The channel is closed when ctx ends or the Source stops.
func (s *Source[K, D, P, U]) OperationResults(ctx context.Context, operationID string) <-chan UpdateOutcome[K, D, U] {
	size := fixConfig(s.config.Get()).UpdateResultsBufferSize
	return s.updates.subscribeFunc(ctx, size, func(o UpdateOutcome[K, D, U]) bool {
		return o.OperationID == operationID
	})
}

// Updatable reports whether the Source has an update fetcher.
func (s *Source[K, D, P, U]) Updatable() bool {
	return s.updater != nil
}

// Done returns a channel that is closed once the Source has stopped and all
// of its goroutines have exited.
func (s *Source[K, D, P, U]) Done() <-chan struct{} {
	return s.done
}

// run is the control loop. It handles one action at a time until ctx ends.
// Closing the action channel only stops reading from it.
func (s *Source[K, D, P, U]) run(ctx context.Context, actions <-chan Action) {
	defer s.teardown()

	s.logger.Debug("Source started")
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-actions:
			if !ok {
				s.logger.Debug("Action channel closed")
				actions = nil
				continue
			}
			s.handle(ctx, a)
		}
	}
}

func (s *Source[K, D, P, U]) handle(ctx context.Context, a Action) {
	s.logger.Debug("Handling action", zap.String("action", ActionName(a)))

	switch a := a.(type) {
	case Reload[P]:
		s.doReload(ctx, a)
	case LoadMore[P]:
		s.doLoadMore(ctx, a)
	case UpdateBatches[K, U]:
		s.doUpdate(ctx, a)
	case CancelBatchLoading:
		s.cancelLoading()
	case CancelAllUpdates:
		n := s.jobs.cancel(func(*updateJob[K, U]) bool { return true })
		s.logger.Debug("Cancelled updates", zap.Int("count", n))
	case CancelUpdates[K, U]:
		s.doCancelUpdates(a)
	case Reset:
		s.cancelLoading()
		s.jobs.cancel(func(*updateJob[K, U]) bool { return true })
		s.store.reset(initialState[K, D](0))
	default:
		s.drop(a, DropUnknownAction)
	}
}

func (s *Source[K, D, P, U]) drop(a Action, reason string) {
	s.logger.Debug("Action dropped", zap.String("action", ActionName(a)), zap.String("reason", reason))
	s.stats.RecordActionDropped(reason)
}

// spawn runs fn as a task of the Source. The task's context is cancelled
// by the returned task's cancel func or when ctx ends.
func (s *Source[K, D, P, U]) spawn(ctx context.Context, fn func(ctx context.Context)) *task {
	tctx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.group.Go(func() error {
		defer close(t.done)
		defer cancel()
		fn(tctx)
		return nil
	})
	return t
}

func (s *Source[K, D, P, U]) cancelLoading() {
	if s.reloadTask != nil {
		s.reloadTask.cancel()
	}
	if s.loadMoreTask != nil {
		s.loadMoreTask.cancel()
	}
}

func (s *Source[K, D, P, U]) doReload(ctx context.Context, a Reload[P]) {
	s.cancelLoading()
	n := s.jobs.cancel(func(*updateJob[K, U]) bool { return true })
	if n > 0 {
		s.logger.Debug("Reload cancelled updates", zap.Int("count", n))
	}

	epoch := s.store.reset(State[K, D]{Status: Status[D]{Kind: StatusInitialLoading}})
	s.reloadTask = s.spawn(ctx, func(ctx context.Context) {
		s.runReload(ctx, epoch, a.Params)
	})
}

func (s *Source[K, D, P, U]) runReload(ctx context.Context, epoch uint64, params P) {
	res := s.fetch(ctx, FetchFirst, func(fctx context.Context) (FetchResult[D], error) {
		return s.fetcher.FetchFirst(fctx, params)
	})
	if ctx.Err() != nil {
		return
	}

	key, appended, res := s.keyFor(res, nil)
	committed := s.store.commit(epoch, func(cur snapshot[K, D]) (snapshot[K, D], bool) {
		cur.state.fetches++
		if !res.OK() {
			cur.state.Status = Status[D]{Kind: StatusInitialLoadingError, Err: res.Err}
			return cur, true
		}
		if appended {
			cur.state.Batches = appendBatch(cur.state.Batches, Batch[K, D]{Key: key, Data: res.Data})
		}
		cur.state.Status = statusAfter(res)
		last := res
		cur.last = &last
		return cur, true
	})
	if committed && appended {
		s.stats.RecordBatchAppended()
	}
}

func (s *Source[K, D, P, U]) doLoadMore(ctx context.Context, a LoadMore[P]) {
	if s.loadMoreTask.active() {
		s.drop(a, DropLoadMoreActive)
		return
	}

	reload := s.reloadTask
	s.loadMoreTask = s.spawn(ctx, func(ctx context.Context) {
		s.runLoadMore(ctx, reload, a)
	})
}

func (s *Source[K, D, P, U]) runLoadMore(ctx context.Context, reload *task, a LoadMore[P]) {
	// A LoadMore sent right after a Reload must see the reloaded list.
	if reload != nil {
		select {
		case <-reload.done:
		case <-ctx.Done():
			return
		}
	}

	epoch := s.store.load().state.epoch
	var last FetchResult[D]
	ok := s.store.commit(epoch, func(cur snapshot[K, D]) (snapshot[K, D], bool) {
		if cur.last == nil || !cur.state.Status.canLoadMore(a.Params != nil) {
			return cur, false
		}
		last = *cur.last
		cur.state.Status = Status[D]{Kind: StatusNextBatchLoading}
		return cur, true
	})
	if !ok {
		s.drop(a, DropLoadMoreGuard)
		return
	}

	res := s.fetch(ctx, FetchNext, func(fctx context.Context) (FetchResult[D], error) {
		return s.fetcher.FetchNext(fctx, a.Params, last)
	})
	if ctx.Err() != nil {
		return
	}

	key, appended, res := s.keyFor(res, s.store.load().state.Keys())
	committed := s.store.commit(epoch, func(cur snapshot[K, D]) (snapshot[K, D], bool) {
		cur.state.Status = statusAfter(res)
		cur.state.fetches++
		if !res.OK() {
			return cur, true
		}
		if appended {
			cur.state.Batches = appendBatch(cur.state.Batches, Batch[K, D]{Key: key, Data: res.Data})
		}
		next := res
		cur.last = &next
		return cur, true
	})
	if committed && appended {
		s.stats.RecordBatchAppended()
	}
}

// keyFor generates the key for the batch of a successful, non-empty result.
// A panicking key generator turns res into a failure.
func (s *Source[K, D, P, U]) keyFor(res FetchResult[D], existing []K) (K, bool, FetchResult[D]) {
	var key K
	if !res.OK() || res.Empty {
		return key, false, res
	}

	key, err := recoverCall(func() (K, error) {
		return s.keys.NextKey(existing), nil
	})
	if err != nil {
		s.logger.Error("Key generator panicked", zap.Error(err))
		return key, false, Failure[D](wrapFetchError(err))
	}
	return key, true, res
}

// fetch calls a Fetcher method with the configured timeout. Errors and
// panics are returned as a failed result. Nothing is recorded when ctx was
// cancelled during the call.
func (s *Source[K, D, P, U]) fetch(ctx context.Context, kind FetchKind, call func(ctx context.Context) (FetchResult[D], error)) FetchResult[D] {
	fctx := ctx
	if timeout := fixConfig(s.config.Get()).FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.stats.RecordFetchStart(kind)
	start := time.Now()

	res, err := recoverCall(func() (FetchResult[D], error) {
		return call(fctx)
	})
	if err == nil {
		err = res.Err
	}
	if err != nil {
		res = Failure[D](wrapFetchError(err))
	}

	if ctx.Err() != nil {
		s.logger.Debug("Fetch cancelled", zap.Stringer("kind", kind))
		return res
	}

	duration := time.Since(start)
	s.stats.RecordFetchComplete(kind, duration, res.Err)
	if res.Err != nil {
		s.logFailure("Fetch failed", res.Err, zap.Stringer("kind", kind))
	} else {
		s.logger.Debug("Fetch complete",
			zap.Stringer("kind", kind),
			zap.Bool("empty", res.Empty),
			zap.Bool("last", res.Last),
			zap.Duration("duration", duration))
	}
	return res
}

func (s *Source[K, D, P, U]) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var pe *PanicError
	if errors.As(err, &pe) {
		s.logger.Error(msg, append(fields, zap.ByteString("stack", pe.Stack))...)
		return
	}
	s.logger.Warn(msg, fields...)
}

func (s *Source[K, D, P, U]) teardown() {
	s.jobs.cancel(func(*updateJob[K, U]) bool { return true })
	s.cancelLoading()

	_ = s.group.Wait()

	s.store.reset(initialState[K, D](0))
	s.updates.close()
	s.logger.Info("Source stopped")
	close(s.done)
}

// recoverCall calls fn and turns a panic into a *PanicError.
func recoverCall[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
