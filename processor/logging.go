package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MasterOfBinary/batchlist/batch"
)

// Logging wraps another update fetcher and logs when an update starts and
// completes, along with any error it returns.
type Logging[K comparable, D, U any] struct {
	// Fetcher is the wrapped update fetcher that does the actual work.
	Fetcher batch.UpdateFetcher[K, D, U]

	// Logger is used to log update events.
	// If nil, no logging occurs.
	Logger *zap.SugaredLogger

	// Name is an optional name for the fetcher used in log messages.
	// If empty, the type of Fetcher is used.
	Name string
}

// FetchUpdate implements the batch.UpdateFetcher interface by delegating to
// the wrapped fetcher and logging the call.
func (p *Logging[K, D, U]) FetchUpdate(ctx context.Context, toUpdate []batch.Batch[K, D], req U) ([]batch.Batch[K, D], error) {
	if p.Fetcher == nil {
		return nil, nil
	}
	if p.Logger == nil {
		return p.Fetcher.FetchUpdate(ctx, toUpdate, req)
	}

	name := p.name()
	start := time.Now()
	p.Logger.Debugw("Update starting", "fetcher", name, "batches", len(toUpdate))

	result, err := p.Fetcher.FetchUpdate(ctx, toUpdate, req)

	duration := time.Since(start)
	if err != nil {
		p.Logger.Warnw("Update failed", "fetcher", name, "duration", duration, "error", err)
	} else {
		p.Logger.Debugw("Update completed", "fetcher", name, "duration", duration,
			"requested", len(toUpdate), "returned", len(result))
	}

	return result, err
}

func (p *Logging[K, D, U]) name() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%T", p.Fetcher)
}

// WrapWithLogging wraps an update fetcher with logging.
// This is a convenience function for creating a Logging fetcher.
//
// Example:
//
//	logger, _ := zap.NewDevelopment()
//	wrapped := processor.WrapWithLogging(fetcher, logger.Sugar(), "quotes")
func WrapWithLogging[K comparable, D, U any](fetcher batch.UpdateFetcher[K, D, U], logger *zap.SugaredLogger, name string) *Logging[K, D, U] {
	return &Logging[K, D, U]{
		Fetcher: fetcher,
		Logger:  logger,
		Name:    name,
	}
}
