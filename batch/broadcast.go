package batch

import (
	"context"
	"sync"
)

// broadcaster fans values out to subscribers. Each subscriber has its own
// bounded buffer; when it is full the oldest value is dropped, so a slow
// subscriber never blocks a publisher.
type broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]func(T) bool
	closed bool
	done   chan struct{}
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{
		subs: make(map[chan T]func(T) bool),
		done: make(chan struct{}),
	}
}

// subscribe returns a channel receiving every value published from now on.
// size must be at least 1. The channel is closed when ctx ends or the
// broadcaster is closed.
func (b *broadcaster[T]) subscribe(ctx context.Context, size int) <-chan T {
	return b.subscribeFunc(ctx, size, nil)
}

// subscribeFunc is like subscribe, but the channel only receives the values
// for which match returns true. A nil match receives every value.
func (b *broadcaster[T]) subscribeFunc(ctx context.Context, size int, match func(T) bool) <-chan T {
	ch := make(chan T, size)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = match
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()

	return ch
}

// publish sends v to every subscriber and returns how many buffered values
// were dropped to make room.
func (b *broadcaster[T]) publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for ch, match := range b.subs {
		if match != nil && !match(v) {
			continue
		}
		for sent := false; !sent; {
			select {
			case ch <- v:
				sent = true
			default:
				// Full: drop the oldest value. The subscriber may have
				// drained it concurrently, in which case the retry succeeds.
				select {
				case <-ch:
					dropped++
				default:
				}
			}
		}
	}
	return dropped
}

// close closes every subscription. Publishing after close is a no-op.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	close(b.done)
}
