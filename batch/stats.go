package batch

import (
	"sync"
	"sync/atomic"
	"time"
)

// FetchKind tells which Fetcher method a statistic refers to.
type FetchKind int

const (
	// FetchFirst is a FetchFirst call made for a Reload.
	FetchFirst FetchKind = iota
	// FetchNext is a FetchNext call made for a LoadMore.
	FetchNext
)

// String returns the string representation of the fetch kind.
func (k FetchKind) String() string {
	switch k {
	case FetchFirst:
		return "first"
	case FetchNext:
		return "next"
	default:
		return "unknown"
	}
}

// Reasons passed to StatsCollector.RecordActionDropped.
const (
	DropLoadMoreActive   = "load_more_active"
	DropLoadMoreGuard    = "load_more_guard"
	DropReloadActive     = "reload_active"
	DropNoUpdateFetcher  = "no_update_fetcher"
	DropDuplicateOp      = "duplicate_operation"
	DropTooManyUpdates   = "too_many_updates"
	DropUnknownAction    = "unknown_action"
	DropAsyncUnsupported = "async_unsupported"
)

// StatsCollector defines the interface for collecting metrics from a Source.
// Implementations can store metrics in memory or export them to monitoring
// systems. The StatsCollector is optional - if not provided, no statistics
// are collected.
//
// All methods may be called concurrently.
type StatsCollector interface {
	// RecordFetchStart is called before a Fetcher method is called.
	RecordFetchStart(kind FetchKind)

	// RecordFetchComplete is called when a fetch finished and was not
	// cancelled. err is nil on success.
	RecordFetchComplete(kind FetchKind, duration time.Duration, err error)

	// RecordBatchAppended is called when a page is added to the list.
	RecordBatchAppended()

	// RecordUpdateStart is called when an update job passes its start gate.
	RecordUpdateStart()

	// RecordUpdateComplete is called when an update job finished and was not
	// cancelled. err is nil on success.
	RecordUpdateComplete(duration time.Duration, err error)

	// RecordActionDropped is called when an action is ignored. reason is one
	// of the Drop constants.
	RecordActionDropped(reason string)

	// GetStats returns a snapshot of the current statistics.
	GetStats() Stats
}

// Stats holds aggregated statistics about a Source.
type Stats struct {
	// FetchesStarted is the total number of fetches started, by kind.
	FetchesStarted map[FetchKind]uint64

	// FetchErrors is the total number of failed fetches, by kind.
	FetchErrors map[FetchKind]uint64

	// FetchesCompleted is the total number of fetches that were not cancelled.
	FetchesCompleted uint64

	// BatchesAppended is the total number of pages added to the list.
	BatchesAppended uint64

	// UpdatesStarted is the total number of update jobs started.
	UpdatesStarted uint64

	// UpdatesCompleted is the total number of update jobs that were not cancelled.
	UpdatesCompleted uint64

	// UpdateErrors is the total number of failed update jobs.
	UpdateErrors uint64

	// ActionsDropped is the total number of ignored actions, by reason.
	ActionsDropped map[string]uint64

	// TotalFetchTime is the cumulative time spent in completed fetches.
	TotalFetchTime time.Duration

	// MaxFetchTime is the longest completed fetch.
	MaxFetchTime time.Duration

	// TotalUpdateTime is the cumulative time spent in completed updates.
	TotalUpdateTime time.Duration

	// StartTime is when statistics collection began.
	StartTime time.Time

	// LastUpdateTime is when statistics were last updated.
	LastUpdateTime time.Time
}

// NoOpStatsCollector is a stats collector that discards all metrics.
// This is the default stats collector when none is specified.
type NoOpStatsCollector struct{}

// RecordFetchStart implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordFetchStart(kind FetchKind) {}

// RecordFetchComplete implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordFetchComplete(kind FetchKind, duration time.Duration, err error) {}

// RecordBatchAppended implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordBatchAppended() {}

// RecordUpdateStart implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordUpdateStart() {}

// RecordUpdateComplete implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordUpdateComplete(duration time.Duration, err error) {}

// RecordActionDropped implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordActionDropped(reason string) {}

// GetStats implements the StatsCollector interface.
func (n *NoOpStatsCollector) GetStats() Stats {
	return Stats{}
}

// BasicStatsCollector is a simple in-memory implementation of StatsCollector.
// All operations are thread-safe.
type BasicStatsCollector struct {
	mu    sync.RWMutex
	stats Stats

	// Atomic counters for lock-free updates
	batchesAppended  uint64
	updatesStarted   uint64
	updatesCompleted uint64
	updateErrors     uint64
}

// NewBasicStatsCollector creates a new BasicStatsCollector.
func NewBasicStatsCollector() *BasicStatsCollector {
	now := time.Now()
	return &BasicStatsCollector{
		stats: Stats{
			FetchesStarted: make(map[FetchKind]uint64),
			FetchErrors:    make(map[FetchKind]uint64),
			ActionsDropped: make(map[string]uint64),
			StartTime:      now,
			LastUpdateTime: now,
		},
	}
}

// RecordFetchStart implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordFetchStart(kind FetchKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.FetchesStarted[kind]++
	b.stats.LastUpdateTime = time.Now()
}

// RecordFetchComplete implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordFetchComplete(kind FetchKind, duration time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.FetchesCompleted++
	if err != nil {
		b.stats.FetchErrors[kind]++
	}
	b.stats.TotalFetchTime += duration
	if duration > b.stats.MaxFetchTime {
		b.stats.MaxFetchTime = duration
	}
	b.stats.LastUpdateTime = time.Now()
}

// RecordBatchAppended implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordBatchAppended() {
	atomic.AddUint64(&b.batchesAppended, 1)
}

// RecordUpdateStart implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordUpdateStart() {
	atomic.AddUint64(&b.updatesStarted, 1)
}

// RecordUpdateComplete implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordUpdateComplete(duration time.Duration, err error) {
	atomic.AddUint64(&b.updatesCompleted, 1)
	if err != nil {
		atomic.AddUint64(&b.updateErrors, 1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.TotalUpdateTime += duration
	b.stats.LastUpdateTime = time.Now()
}

// RecordActionDropped implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordActionDropped(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.ActionsDropped[reason]++
	b.stats.LastUpdateTime = time.Now()
}

// GetStats implements the StatsCollector interface.
// It returns a snapshot of the current statistics.
func (b *BasicStatsCollector) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := b.stats
	stats.FetchesStarted = copyCounts(b.stats.FetchesStarted)
	stats.FetchErrors = copyCounts(b.stats.FetchErrors)
	stats.ActionsDropped = copyCounts(b.stats.ActionsDropped)
	stats.BatchesAppended = atomic.LoadUint64(&b.batchesAppended)
	stats.UpdatesStarted = atomic.LoadUint64(&b.updatesStarted)
	stats.UpdatesCompleted = atomic.LoadUint64(&b.updatesCompleted)
	stats.UpdateErrors = atomic.LoadUint64(&b.updateErrors)

	return stats
}

func copyCounts[T comparable](m map[T]uint64) map[T]uint64 {
	out := make(map[T]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AverageFetchTime returns the average duration of completed fetches.
// Returns 0 if no fetch has completed.
func (s *Stats) AverageFetchTime() time.Duration {
	if s.FetchesCompleted == 0 {
		return 0
	}
	return s.TotalFetchTime / time.Duration(s.FetchesCompleted)
}

// UpdateErrorRate returns the percentage of completed updates that failed.
// Returns 0 if no update has completed.
func (s *Stats) UpdateErrorRate() float64 {
	if s.UpdatesCompleted == 0 {
		return 0
	}
	return float64(s.UpdateErrors) / float64(s.UpdatesCompleted) * 100
}

// Duration returns the total duration since statistics collection started.
func (s *Stats) Duration() time.Duration {
	return s.LastUpdateTime.Sub(s.StartTime)
}
