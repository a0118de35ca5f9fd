package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	. "github.com/MasterOfBinary/batchlist/batch"
)

func TestSource_Teardown(t *testing.T) {
	f := newBlockingFetcher().script([]FetchResult[[]string]{page("a")}, page("b"))
	u := newBlockingUpdater()

	core, logs := observer.New(zapcore.InfoLevel)
	opts := testOptions(t)
	opts.Logger = zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actions := make(chan Action)
	src := NewWithUpdates[int64, []string, int, string](ctx, actions, f, u, sequentialKeys, opts)

	send(t, actions, NewReload(0))
	expectStarted(t, f.started)
	releaseOne(t, f.release)

	watch := src.Watch(context.Background())
	outcomes := src.UpdateResults(context.Background())
	for state := range watch {
		if state.Status.Kind == StatusPaginating {
			break
		}
	}

	send(t, actions, NewLoadMore[int](nil))
	expectStarted(t, f.started)
	send(t, actions, NewUpdate([]int64{1}, "x"))
	expectStarted(t, u.started)

	cancel()
	select {
	case <-src.Done():
	case <-time.After(waitTimeout):
		t.Fatal("source did not stop")
	}

	assert.Equal(t, int32(1), f.cancelled.Load())
	assert.Equal(t, int32(1), u.cancelled.Load())

	state := src.State()
	assert.Equal(t, StatusNone, state.Status.Kind)
	assert.Empty(t, state.Batches)

	var last State[int64, []string]
	for s := range watch {
		last = s
	}
	assert.Equal(t, StatusNone, last.Status.Kind, "watchers see the reset state before the channel closes")

	_, ok := <-outcomes
	assert.False(t, ok, "update results are closed")
	assert.Equal(t, 1, logs.FilterMessage("Source stopped").Len())
}

func TestSource_ClosedActionChannel(t *testing.T) {
	f := newTestFetcher().script([]FetchResult[[]string]{page("a")})
	src, actions := startSource(t, f, newTestUpdater(), nil)

	send(t, actions, NewReload(0))
	close(actions)

	state := waitState(t, src, hasStatus(StatusPaginating, 1))
	assert.Equal(t, []int64{1}, state.Keys())

	select {
	case <-src.Done():
		t.Fatal("closing the action channel must not stop the source")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSource_SubscribeAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := New[int64, []string, int](ctx, nil, newTestFetcher(), sequentialKeys, nil)
	cancel()
	<-src.Done()

	_, ok := <-src.UpdateResults(context.Background())
	assert.False(t, ok)

	var states []State[int64, []string]
	for s := range src.Watch(context.Background()) {
		states = append(states, s)
	}
	require.Len(t, states, 1)
	assert.Equal(t, StatusNone, states[0].Status.Kind)
}

func TestNew_Panics(t *testing.T) {
	ctx := context.Background()

	assert.Panics(t, func() {
		New[int64, []string, int](ctx, nil, nil, sequentialKeys, nil)
	})
	assert.Panics(t, func() {
		New[int64, []string, int](ctx, nil, newTestFetcher(), nil, nil)
	})
	assert.Panics(t, func() {
		NewWithUpdates[int64, []string, int, string](ctx, nil, newTestFetcher(), nil, sequentialKeys, nil)
	})
}
