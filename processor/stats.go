package processor

import (
	"context"
	"time"

	"github.com/MasterOfBinary/batchlist/batch"
)

// Stats wraps another update fetcher and records every call with
// RecordUpdateStart and RecordUpdateComplete.
//
// A Source already records its updates in the StatsCollector of its
// Options. Use Stats with a separate collector to measure one fetcher on its
// own, for instance one of several fetchers combined behind a Filter.
type Stats[K comparable, D, U any] struct {
	// Fetcher is the wrapped update fetcher that does the actual work.
	Fetcher batch.UpdateFetcher[K, D, U]

	// Stats is used to collect update metrics.
	// If nil, no statistics are collected.
	Stats batch.StatsCollector
}

// FetchUpdate implements the batch.UpdateFetcher interface by delegating to
// the wrapped fetcher and collecting statistics about the call.
func (p *Stats[K, D, U]) FetchUpdate(ctx context.Context, toUpdate []batch.Batch[K, D], req U) ([]batch.Batch[K, D], error) {
	if p.Fetcher == nil {
		return nil, nil
	}
	if p.Stats == nil {
		return p.Fetcher.FetchUpdate(ctx, toUpdate, req)
	}

	start := time.Now()
	p.Stats.RecordUpdateStart()

	result, err := p.Fetcher.FetchUpdate(ctx, toUpdate, req)

	p.Stats.RecordUpdateComplete(time.Since(start), err)
	return result, err
}

// WrapWithStats wraps an update fetcher with statistics collection.
// This is a convenience function for creating a Stats fetcher.
//
// Example:
//
//	stats := batch.NewBasicStatsCollector()
//	wrapped := processor.WrapWithStats(fetcher, stats)
//
//	// Later, get statistics
//	currentStats := stats.GetStats()
func WrapWithStats[K comparable, D, U any](fetcher batch.UpdateFetcher[K, D, U], stats batch.StatsCollector) *Stats[K, D, U] {
	return &Stats[K, D, U]{
		Fetcher: fetcher,
		Stats:   stats,
	}
}
