package processor

import (
	"context"
	"sync"

	"github.com/MasterOfBinary/batchlist/batch"
)

// ResultCollector gathers the update outcomes a Source publishes. Start it
// with Collect on the channel returned by Source.UpdateResults.
//
// All methods are safe for concurrent use. Results(false) and Count take a
// read lock, so several readers don't block each other; Collect, Add,
// Results(true) and Reset take the write lock.
//
// Collected outcomes are copied, but the batch data inside them is not
// deep-copied.
//
// Example usage:
//
//	collector := &processor.ResultCollector[int, []Coin, Quote]{}
//	go collector.Collect(ctx, src.UpdateResults(ctx))
//
//	// Access results without resetting
//	for _, outcome := range collector.Results(false) {
//		fmt.Println(outcome.Request, outcome.Result.OK())
//	}
//
// By default, failed updates are not collected. This behavior can be
// changed by setting CollectErrors to true.
type ResultCollector[K comparable, D, U any] struct {
	// Filter determines which outcomes to collect.
	// If nil, all successful outcomes are collected.
	Filter func(outcome batch.UpdateOutcome[K, D, U]) bool

	// MaxItems limits the number of outcomes collected (0 for unlimited).
	// Once the number of collected outcomes reaches MaxItems, no more
	// outcomes will be collected until the collector is reset.
	MaxItems int

	// CollectErrors determines whether to collect failed updates.
	CollectErrors bool

	mu      sync.RWMutex
	results []batch.UpdateOutcome[K, D, U]
}

// Collect adds every outcome received from outcomes until the channel is
// closed or ctx is done. It returns the number of outcomes added.
func (c *ResultCollector[K, D, U]) Collect(ctx context.Context, outcomes <-chan batch.UpdateOutcome[K, D, U]) int {
	added := 0
	for {
		select {
		case <-ctx.Done():
			return added
		case outcome, ok := <-outcomes:
			if !ok {
				return added
			}
			if c.Add(outcome) {
				added++
			}
		}
	}
}

// Add collects a single outcome based on the filter criteria. It reports
// whether the outcome was collected.
func (c *ResultCollector[K, D, U]) Add(outcome batch.UpdateOutcome[K, D, U]) bool {
	if !outcome.Result.OK() && !c.CollectErrors {
		return false
	}
	if c.Filter != nil && !c.Filter(outcome) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.MaxItems > 0 && len(c.results) >= c.MaxItems {
		return false
	}

	outcome.Result.Batches = append([]batch.Batch[K, D](nil), outcome.Result.Batches...)
	c.results = append(c.results, outcome)
	return true
}

// Results returns a copy of the collected outcomes. If reset is true the
// collection is cleared in the same operation.
func (c *ResultCollector[K, D, U]) Results(reset bool) []batch.UpdateOutcome[K, D, U] {
	if reset {
		c.mu.Lock()
		defer c.mu.Unlock()
	} else {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}

	result := make([]batch.UpdateOutcome[K, D, U], len(c.results))
	copy(result, c.results)

	if reset {
		c.results = nil
	}

	return result
}

// Reset clears all collected outcomes.
func (c *ResultCollector[K, D, U]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = nil
}

// Count returns the number of outcomes collected so far.
func (c *ResultCollector[K, D, U]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.results)
}
