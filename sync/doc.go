// Package sync provides synchronous, blocking APIs on top of the
// asynchronous batch.Source. A Source is driven by sending actions and
// observing its state; the functions in this package send an action and
// block until the state or an update outcome reflects it.
//
// The functions work on any running Source:
//
//	state, err := sync.Reload(ctx, src, actions, "bitcoin")
//	state, err = sync.LoadMore[int, []Coin, string](ctx, src, actions, nil)
//	result, err := sync.Update(ctx, src, actions, batch.NewUpdate(keys, quote))
//
// List bundles a Source with its action channel, in the manner of a client
// that owns the Source:
//
//	list := sync.NewList[int, []Coin, string](fetcher, keys.Increment[int]{}, nil)
//	defer list.Close()
//
//	state, err := list.Reload(ctx, "bitcoin")
//
// The package handles:
//   - Per-call context cancellation; an abandoned Update is cancelled
//   - Detecting a Reload or Reset that made the awaited result moot
//   - Detecting a Source that stopped
//
// The asynchronous API stays available through the Source; mixing both is
// safe.
package sync
