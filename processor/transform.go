package processor

import (
	"context"
	"fmt"

	"github.com/MasterOfBinary/batchlist/batch"
)

// TransformFunc computes the new data of one batch from its current data and
// the update request.
type TransformFunc[D, U any] func(ctx context.Context, data D, req U) (D, error)

// Transform is an update fetcher that applies a transformation function to
// the data of each requested batch. It can be used for updates that don't
// need a round trip to the data source, like toggling a flag on an item.
//
// Transform also implements batch.AsyncUpdateFetcher. An asynchronous
// Transform applies each batch as a separate update, so the list shows
// progress while a slow Func works through the batches.
type Transform[K comparable, D, U any] struct {
	// Func is the transformation function to apply to each batch's Data.
	// If nil, batches are returned unchanged.
	Func TransformFunc[D, U]

	// StopOnError determines whether to stop transforming batches after a
	// transformation error.
	// If true, the update fails with the first error and no batch changes.
	// If false, batches whose transformation failed keep their data while
	// the others are updated.
	// Default is false (continue processing).
	StopOnError bool
}

// FetchUpdate implements the batch.UpdateFetcher interface.
func (p *Transform[K, D, U]) FetchUpdate(ctx context.Context, toUpdate []batch.Batch[K, D], req U) ([]batch.Batch[K, D], error) {
	if len(toUpdate) == 0 || p.Func == nil {
		return toUpdate, nil
	}

	result := make([]batch.Batch[K, D], 0, len(toUpdate))
	for _, b := range toUpdate {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := p.Func(ctx, b.Data, req)
		if err != nil {
			if p.StopOnError {
				return nil, fmt.Errorf("transform batch %v: %w", b.Key, err)
			}
			continue
		}
		result = append(result, batch.Batch[K, D]{Key: b.Key, Data: data})
	}

	return result, nil
}

// FetchUpdateAsync implements the batch.AsyncUpdateFetcher interface. Every
// batch is transformed from its latest data and applied on its own.
func (p *Transform[K, D, U]) FetchUpdateAsync(ctx context.Context, toUpdate []batch.Batch[K, D], req U, apply batch.Applier[K, D]) error {
	if p.Func == nil {
		return nil
	}

	for _, b := range toUpdate {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := b.Key
		apply(func(current []batch.Batch[K, D]) ([]batch.Batch[K, D], error) {
			for _, cur := range current {
				if cur.Key != key {
					continue
				}
				data, err := p.Func(ctx, cur.Data, req)
				if err != nil {
					return nil, fmt.Errorf("transform batch %v: %w", key, err)
				}
				return []batch.Batch[K, D]{{Key: key, Data: data}}, nil
			}
			// The batch is gone, e.g. after a reload.
			return nil, nil
		})
	}

	return nil
}
