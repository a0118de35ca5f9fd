// Package batchlist is the root of a module for loading large lists
// incrementally. A list is loaded page by page into batches, and loaded
// batches can be refreshed while more pages are loading.
//
// The engine lives in the batch package. batch.Source runs the pagination
// state machine for one list: it reads actions (Reload, LoadMore,
// UpdateBatches, CancelUpdates and Reset) from a channel, runs page fetches
// and batch updates in the background, and publishes every state change to
// watchers and every update outcome to subscribers.
//
// The other packages build on it:
//
//	source     fetchers: limit/offset paging, plus Nil and Error for tests
//	processor  update fetchers: Transform, Filter, and logging and stats wrappers
//	keys       batch key generators (sequences and UUIDs)
//	sync       blocking Reload, LoadMore and Update on top of a Source
//	pipeline   Redis backed fetchers and update fetchers
//	metrics    a Prometheus StatsCollector
//
// A minimal use of the engine:
//
//	actions := make(chan batch.Action)
//	src := batch.New[int, []Coin, string](ctx, actions, fetcher, keys.Increment[int]{Start: 1}, nil)
//	actions <- batch.NewReload("top")
//	for state := range src.Watch(ctx) {
//		render(state.Batches, state.Status)
//	}
package batchlist
