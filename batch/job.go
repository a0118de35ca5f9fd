package batch

import (
	"context"
	"sync/atomic"
)

// updateJob is one UpdateBatches action in flight. A job is created waiting
// and only calls the update fetcher once it has been moved to the active set.
type updateJob[K comparable, U any] struct {
	id     uint64
	action UpdateBatches[K, U]
	keys   map[K]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// cancelled is set by whoever cancels the job from outside. That party
	// also removes the job from the table, so the job must not do it again.
	cancelled atomic.Bool
}

func newUpdateJob[K comparable, U any](parent context.Context, id uint64, action UpdateBatches[K, U]) *updateJob[K, U] {
	keys := make(map[K]struct{}, len(action.Keys))
	for _, k := range action.Keys {
		keys[k] = struct{}{}
	}
	ctx, cancel := context.WithCancel(parent)
	return &updateJob[K, U]{
		id:     id,
		action: action,
		keys:   keys,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (j *updateJob[K, U]) overlaps(other *updateJob[K, U]) bool {
	small, large := j.keys, other.keys
	if len(small) > len(large) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}

// jobs is an immutable view of the update jobs known to a Source.
type jobs[K comparable, U any] struct {
	waiting []*updateJob[K, U]
	active  []*updateJob[K, U]
	async   []*updateJob[K, U]
}

func (t *jobs[K, U]) len() int {
	return len(t.waiting) + len(t.active) + len(t.async)
}

func (t *jobs[K, U]) each(fn func(*updateJob[K, U])) {
	for _, set := range [][]*updateJob[K, U]{t.waiting, t.active, t.async} {
		for _, j := range set {
			fn(j)
		}
	}
}

func without[K comparable, U any](set []*updateJob[K, U], j *updateJob[K, U]) ([]*updateJob[K, U], bool) {
	for i, cur := range set {
		if cur == j {
			out := make([]*updateJob[K, U], 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...), true
		}
	}
	return set, false
}

func partition[K comparable, U any](set []*updateJob[K, U], match func(*updateJob[K, U]) bool) (keep, removed []*updateJob[K, U]) {
	for _, j := range set {
		if match(j) {
			removed = append(removed, j)
		} else {
			keep = append(keep, j)
		}
	}
	return keep, removed
}

func with[K comparable, U any](set []*updateJob[K, U], j *updateJob[K, U]) []*updateJob[K, U] {
	out := make([]*updateJob[K, U], len(set), len(set)+1)
	copy(out, set)
	return append(out, j)
}

// jobTable holds the waiting, active and async update jobs. Many jobs join
// and leave it concurrently; every change swaps the whole table with
// compare-and-swap and then wakes the jobs waiting at their start gate.
type jobTable[K comparable, U any] struct {
	cur     atomic.Pointer[jobs[K, U]]
	changed *signal
}

func newJobTable[K comparable, U any]() *jobTable[K, U] {
	t := &jobTable[K, U]{changed: newSignal()}
	t.cur.Store(&jobs[K, U]{})
	return t
}

func (t *jobTable[K, U]) load() *jobs[K, U] {
	return t.cur.Load()
}

// swap applies fn to the table until the compare-and-swap succeeds. fn
// returns false to leave the table unchanged.
func (t *jobTable[K, U]) swap(fn func(cur jobs[K, U]) (jobs[K, U], bool)) bool {
	for {
		old := t.cur.Load()
		next, ok := fn(*old)
		if !ok {
			return false
		}
		if t.cur.CompareAndSwap(old, &next) {
			t.changed.broadcast()
			return true
		}
	}
}

// add registers j as waiting, or as async if the action asks for it. It
// fails if limit > 0 and the table already holds limit jobs, or if another
// job uses the same non-empty operation ID.
func (t *jobTable[K, U]) add(j *updateJob[K, U], limit int) error {
	var err error
	t.swap(func(cur jobs[K, U]) (jobs[K, U], bool) {
		err = nil
		if id := j.action.OperationID; id != "" {
			dup := false
			cur.each(func(other *updateJob[K, U]) {
				if other.action.OperationID == id {
					dup = true
				}
			})
			if dup {
				err = &OperationInProgressError{OperationID: id}
				return cur, false
			}
		}
		if limit > 0 && cur.len() >= limit {
			err = ErrTooManyUpdates
			return cur, false
		}
		if j.action.Async {
			cur.async = with(cur.async, j)
		} else {
			cur.waiting = with(cur.waiting, j)
		}
		return cur, true
	})
	return err
}

// tryStart moves j from waiting to active if no active job overlaps it.
// Other waiting jobs never hold j back. present is false if j is no longer
// waiting because it was cancelled.
func (t *jobTable[K, U]) tryStart(j *updateJob[K, U]) (started, present bool) {
	present = true
	started = t.swap(func(cur jobs[K, U]) (jobs[K, U], bool) {
		waiting, ok := without(cur.waiting, j)
		if !ok {
			present = false
			return cur, false
		}
		for _, other := range cur.active {
			if j.overlaps(other) {
				return cur, false
			}
		}
		cur.waiting = waiting
		cur.active = with(cur.active, j)
		return cur, true
	})
	return started, present
}

// awaitStart blocks until j is active. It returns false if j was cancelled
// first.
func (t *jobTable[K, U]) awaitStart(j *updateJob[K, U]) bool {
	for {
		changed := t.changed.wait()
		started, present := t.tryStart(j)
		if started {
			return true
		}
		if !present {
			return false
		}

		select {
		case <-changed:
		case <-j.ctx.Done():
			return false
		}
	}
}

// finish removes a completed job. A job that was cancelled from outside has
// already been removed by its canceller and is left alone.
func (t *jobTable[K, U]) finish(j *updateJob[K, U]) {
	if j.cancelled.Load() {
		return
	}
	t.swap(func(cur jobs[K, U]) (jobs[K, U], bool) {
		var removedActive, removedAsync, removedWaiting bool
		cur.active, removedActive = without(cur.active, j)
		cur.async, removedAsync = without(cur.async, j)
		cur.waiting, removedWaiting = without(cur.waiting, j)
		return cur, removedActive || removedAsync || removedWaiting
	})
}

// cancel removes every job matching match from the table and cancels it.
// It returns the number of cancelled jobs.
func (t *jobTable[K, U]) cancel(match func(*updateJob[K, U]) bool) int {
	var removed []*updateJob[K, U]
	t.swap(func(cur jobs[K, U]) (jobs[K, U], bool) {
		var w, a, as []*updateJob[K, U]
		cur.waiting, w = partition(cur.waiting, match)
		cur.active, a = partition(cur.active, match)
		cur.async, as = partition(cur.async, match)
		removed = append(append(w, a...), as...)
		return cur, len(removed) > 0
	})

	for _, j := range removed {
		j.cancelled.Store(true)
		j.cancel()
	}
	return len(removed)
}
