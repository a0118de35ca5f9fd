// Package source contains implementations of the batch.Fetcher interface
// for common paging schemes, including:
//
// - LimitOffset: For APIs that page with an offset and a limit
// - Slice: A SubFetcher that pages over an in-memory slice
// - Error: For simulating a fetcher that always fails
// - Nil: For testing timing behavior without returning data
//
// Every fetcher respects context cancellation.
//
// Basic usage of the LimitOffset fetcher:
//
//	coins := []string{"btc", "eth", "sol"}
//	f, err := source.NewLimitOffset(source.LimitOffsetConfig[string, string]{
//		FirstLimit: 2,
//		Limit:      2,
//		Fetch:      source.Slice[string](coins),
//	})
//	if err != nil {
//		// handle error
//	}
//	res, _ := f.FetchFirst(ctx, "")
//	fmt.Println(res.Data, res.Last)
//
// Output:
//
//	[btc eth] false
package source
