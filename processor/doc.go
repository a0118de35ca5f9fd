// Package processor contains implementations of the batch.UpdateFetcher
// interface for common update scenarios, including:
//
// - Transform: For rewriting the data of each requested batch
// - Filter: For limiting which batches reach another update fetcher
// - Logging: For logging the calls of another update fetcher
// - Stats: For collecting statistics about another update fetcher
//
// It also contains ResultCollector, which gathers the update outcomes a
// Source publishes.
//
// Every update fetcher respects context cancellation. Decorators can be
// stacked:
//
//	var fetcher batch.UpdateFetcher[int, []Coin, Quote] = &processor.Transform[int, []Coin, Quote]{
//		Func: applyQuote,
//	}
//	fetcher = processor.WrapWithLogging(fetcher, logger.Sugar(), "quotes")
//	fetcher = processor.WrapWithStats(fetcher, stats)
//
//	src := batch.NewWithUpdates(ctx, actions, pages, fetcher, keys, nil)
package processor
