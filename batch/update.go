package batch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

func (s *Source[K, D, P, U]) doUpdate(ctx context.Context, a UpdateBatches[K, U]) {
	if s.updater == nil {
		s.drop(a, DropNoUpdateFetcher)
		return
	}
	// The batches the update refers to are about to be replaced. A reload
	// counts as running until it has committed its first page.
	if s.reloadTask.active() && s.store.load().state.Status.Kind == StatusInitialLoading {
		s.drop(a, DropReloadActive)
		return
	}

	var async AsyncUpdateFetcher[K, D, U]
	if a.Async {
		var ok bool
		if async, ok = s.updater.(AsyncUpdateFetcher[K, D, U]); !ok {
			s.reject(a, ErrAsyncUnsupported, DropAsyncUnsupported)
			return
		}
	}

	s.lastJobID++
	j := newUpdateJob(ctx, s.lastJobID, a)
	if err := s.jobs.add(j, s.limits.MaxPendingUpdates); err != nil {
		j.cancel()
		reason := DropTooManyUpdates
		var inProgress *OperationInProgressError
		if errors.As(err, &inProgress) {
			reason = DropDuplicateOp
		}
		s.reject(a, err, reason)
		return
	}

	// The first start attempt is made here so jobs that can start do so in
	// the order their actions arrived.
	var started bool
	if async == nil {
		started, _ = s.jobs.tryStart(j)
	}

	epoch := s.store.load().state.epoch
	s.group.Go(func() error {
		defer j.cancel()
		if async != nil {
			s.runAsyncUpdate(j, epoch, async)
		} else {
			s.runUpdate(j, epoch, started)
		}
		return nil
	})
}

// reject publishes a failed outcome for an update that never became a job.
func (s *Source[K, D, P, U]) reject(a UpdateBatches[K, U], err error, reason string) {
	s.drop(a, reason)
	s.publish(UpdateOutcome[K, D, U]{
		Request:     a.Request,
		OperationID: a.OperationID,
		Result:      UpdateResult[K, D]{Err: err},
	})
}

func (s *Source[K, D, P, U]) doCancelUpdates(a CancelUpdates[K, U]) {
	if a.Match == nil {
		s.drop(a, DropUnknownAction)
		return
	}

	n := s.jobs.cancel(func(j *updateJob[K, U]) bool {
		match, err := recoverCall(func() (bool, error) {
			return a.Match(j.action), nil
		})
		if err != nil {
			s.logger.Error("Cancel predicate panicked", zap.Error(err))
			return false
		}
		return match
	})
	s.logger.Debug("Cancelled updates", zap.Int("count", n))
}

// runUpdate waits until no overlapping update runs, unless j has already
// started, fetches the update and merges it into the state.
func (s *Source[K, D, P, U]) runUpdate(j *updateJob[K, U], epoch uint64, started bool) {
	defer s.jobs.finish(j)

	if !started && !s.jobs.awaitStart(j) {
		return
	}
	if j.ctx.Err() != nil {
		return
	}
	if !s.acquire(j.ctx) {
		return
	}
	defer s.release()

	s.stats.RecordUpdateStart()
	start := time.Now()

	toUpdate := selectBatches(s.store.load().state.Batches, j.keys)
	updated, err := s.fetchUpdate(j.ctx, func(ctx context.Context) ([]Batch[K, D], error) {
		return s.updater.FetchUpdate(ctx, toUpdate, j.action.Request)
	})
	if j.ctx.Err() != nil {
		return
	}

	s.stats.RecordUpdateComplete(time.Since(start), err)
	s.complete(j, epoch, updated, err)
}

// runAsyncUpdate runs an update that is not gated on other updates. The
// fetcher pushes results through the Applier it is given.
func (s *Source[K, D, P, U]) runAsyncUpdate(j *updateJob[K, U], epoch uint64, fetcher AsyncUpdateFetcher[K, D, U]) {
	defer s.jobs.finish(j)

	if !s.acquire(j.ctx) {
		return
	}
	defer s.release()

	s.stats.RecordUpdateStart()
	start := time.Now()

	apply := func(fn func(current []Batch[K, D]) ([]Batch[K, D], error)) {
		if fn == nil || j.ctx.Err() != nil {
			return
		}
		current := selectBatches(s.store.load().state.Batches, j.keys)
		updated, err := recoverCall(func() ([]Batch[K, D], error) {
			return fn(current)
		})
		if err != nil {
			err = wrapUpdateError(err)
		}
		s.complete(j, epoch, updated, err)
	}

	toUpdate := selectBatches(s.store.load().state.Batches, j.keys)
	_, err := s.fetchUpdate(j.ctx, func(ctx context.Context) ([]Batch[K, D], error) {
		return nil, fetcher.FetchUpdateAsync(ctx, toUpdate, j.action.Request, apply)
	})
	if j.ctx.Err() != nil {
		return
	}

	s.stats.RecordUpdateComplete(time.Since(start), err)
	if err != nil {
		s.publish(UpdateOutcome[K, D, U]{
			Request:     j.action.Request,
			OperationID: j.action.OperationID,
			Result:      UpdateResult[K, D]{Err: err},
		})
	}
}

// complete merges a successful update into the state and publishes the
// outcome. Returned batches with keys outside the request are left out of
// both.
func (s *Source[K, D, P, U]) complete(j *updateJob[K, U], epoch uint64, updated []Batch[K, D], err error) {
	if err == nil {
		updated = selectBatches(updated, j.keys)
		s.store.commit(epoch, func(cur snapshot[K, D]) (snapshot[K, D], bool) {
			merged, changed := mergeBatches(cur.state.Batches, updated, j.keys)
			if !changed {
				return cur, false
			}
			cur.state.Batches = merged
			return cur, true
		})
	} else {
		updated = nil
		s.logFailure("Update failed", err, zap.Int("keys", len(j.keys)), zap.String("operation_id", j.action.OperationID))
	}

	s.publish(UpdateOutcome[K, D, U]{
		Request:     j.action.Request,
		OperationID: j.action.OperationID,
		Result:      UpdateResult[K, D]{Batches: updated, Err: err},
	})
}

// fetchUpdate calls the update fetcher with the configured timeout. Errors
// and panics are wrapped in an *UpdateError.
func (s *Source[K, D, P, U]) fetchUpdate(ctx context.Context, call func(ctx context.Context) ([]Batch[K, D], error)) ([]Batch[K, D], error) {
	if timeout := fixConfig(s.config.Get()).UpdateTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	updated, err := recoverCall(func() ([]Batch[K, D], error) {
		return call(ctx)
	})
	if err != nil {
		return nil, wrapUpdateError(err)
	}
	return updated, nil
}

func (s *Source[K, D, P, U]) acquire(ctx context.Context) bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Acquire(ctx, 1) == nil
}

func (s *Source[K, D, P, U]) release() {
	if s.limiter != nil {
		s.limiter.Release(1)
	}
}

func (s *Source[K, D, P, U]) publish(o UpdateOutcome[K, D, U]) {
	if dropped := s.updates.publish(o); dropped > 0 {
		s.logger.Debug("Dropped buffered update outcomes", zap.Int("dropped", dropped))
	}
}
