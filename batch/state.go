package batch

import (
	"context"
	"sync"
	"sync/atomic"
)

// signal wakes up every goroutine waiting for a change. Waiters take the
// channel returned by wait before inspecting the value they watch, so a change
// made after the inspection always closes a channel they hold.
type signal struct {
	mu sync.Mutex
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

func (s *signal) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
	s.ch = make(chan struct{})
}

// snapshot is what the store holds: the public state plus the last
// successful page result, which LoadMore hands to FetchNext.
type snapshot[K comparable, D any] struct {
	state State[K, D]
	last  *FetchResult[D]
}

// stateStore is the latest-value container behind Source.State and
// Source.Watch. Writers swap whole snapshots with compare-and-swap, so
// readers never lock and never see a partially applied change.
type stateStore[K comparable, D any] struct {
	cur     atomic.Pointer[snapshot[K, D]]
	changed *signal
}

func newStateStore[K comparable, D any]() *stateStore[K, D] {
	s := &stateStore[K, D]{changed: newSignal()}
	s.cur.Store(&snapshot[K, D]{state: initialState[K, D](0)})
	return s
}

func initialState[K comparable, D any](epoch uint64) State[K, D] {
	return State[K, D]{
		Status: Status[D]{Kind: StatusNone},
		epoch:  epoch,
	}
}

func (s *stateStore[K, D]) load() *snapshot[K, D] {
	return s.cur.Load()
}

// reset replaces the state with one in a new epoch and returns that epoch.
// Commits made for an older epoch are rejected from then on.
func (s *stateStore[K, D]) reset(state State[K, D]) uint64 {
	for {
		old := s.cur.Load()
		state.epoch = old.state.epoch + 1
		if s.cur.CompareAndSwap(old, &snapshot[K, D]{state: state}) {
			s.changed.broadcast()
			return state.epoch
		}
	}
}

// commit applies fn to the current snapshot if it is still in epoch. fn
// returns false to leave the snapshot unchanged; it may run more than once
// when writers race, so it must not have side effects.
func (s *stateStore[K, D]) commit(epoch uint64, fn func(cur snapshot[K, D]) (snapshot[K, D], bool)) bool {
	for {
		old := s.cur.Load()
		if old.state.epoch != epoch {
			return false
		}
		next, ok := fn(*old)
		if !ok {
			return false
		}
		next.state.epoch = epoch
		if s.cur.CompareAndSwap(old, &next) {
			s.changed.broadcast()
			return true
		}
	}
}

// watch returns a channel that receives the current snapshot and then every
// later one. Values are conflated: a slow receiver only sees the latest
// state. The channel is closed when ctx or done ends, after a final send of
// the latest state.
func (s *stateStore[K, D]) watch(ctx context.Context, done <-chan struct{}) <-chan State[K, D] {
	out := make(chan State[K, D], 1)

	go func() {
		defer close(out)

		var last *snapshot[K, D]
		push := func() {
			cur := s.cur.Load()
			if cur == last {
				return
			}
			last = cur
			// Replace a value the receiver has not taken yet.
			select {
			case <-out:
			default:
			}
			out <- cur.state
		}

		for {
			changed := s.changed.wait()
			push()

			select {
			case <-changed:
			case <-done:
				push()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
