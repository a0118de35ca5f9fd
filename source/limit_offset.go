package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/MasterOfBinary/batchlist/batch"
)

// Request describes one page requested from a SubFetcher.
type Request[P any] struct {
	// Offset is the number of items loaded before this page.
	Offset int

	// Limit is the maximum number of items to return.
	Limit int

	// Params are the request params of the Reload, or of the most recent
	// LoadMore that carried params.
	Params P

	// First is true for the first page of a Reload.
	First bool
}

// SubFetcher loads the items of one page.
type SubFetcher[P, T any] func(ctx context.Context, req Request[P]) ([]T, error)

// LimitOffset is a batch.Fetcher for data sources that page with an offset
// and a limit. The first page requests FirstLimit items; every later page
// requests Limit items starting after the items loaded so far.
//
// A page with fewer items than requested is the last page, and a page
// without items produces no batch.
//
// LimitOffset keeps the current offset, so one LimitOffset must only be used
// by one Source. Create one with NewLimitOffset.
type LimitOffset[P, T any] struct {
	firstLimit int
	limit      int
	fetch      SubFetcher[P, T]

	mu     sync.Mutex
	params P
	offset int
}

// LimitOffsetConfig provides configuration options for creating a
// LimitOffset fetcher.
type LimitOffsetConfig[P, T any] struct {
	// FirstLimit is the size of the first page. It is usually larger than
	// Limit so the first screen is filled at once.
	// If zero, Limit is used.
	FirstLimit int

	// Limit is the size of every later page. This field is required.
	Limit int

	// Fetch loads the items of a page. This field is required.
	Fetch SubFetcher[P, T]
}

// Validate checks if the LimitOffsetConfig is valid.
func (c LimitOffsetConfig[P, T]) Validate() error {
	var err error
	if c.Fetch == nil {
		err = multierr.Append(err, errors.New("sub-fetcher cannot be nil"))
	}
	if c.Limit <= 0 {
		err = multierr.Append(err, errors.New("limit must be positive"))
	}
	if c.FirstLimit < 0 {
		err = multierr.Append(err, errors.New("first limit cannot be negative"))
	}
	return err
}

// NewLimitOffset creates a new LimitOffset fetcher with the given
// configuration. It validates the configuration and returns an error if
// invalid.
func NewLimitOffset[P, T any](config LimitOffsetConfig[P, T]) (*LimitOffset[P, T], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limit-offset config: %w", err)
	}

	firstLimit := config.FirstLimit
	if firstLimit == 0 {
		firstLimit = config.Limit
	}
	return &LimitOffset[P, T]{
		firstLimit: firstLimit,
		limit:      config.Limit,
		fetch:      config.Fetch,
	}, nil
}

// FetchFirst implements the batch.Fetcher interface.
func (f *LimitOffset[P, T]) FetchFirst(ctx context.Context, params P) (batch.FetchResult[[]T], error) {
	req := Request[P]{
		Offset: 0,
		Limit:  f.firstLimit,
		Params: params,
		First:  true,
	}

	items, err := f.fetch(ctx, req)
	if err != nil {
		return batch.FetchResult[[]T]{}, err
	}

	f.mu.Lock()
	f.params = params
	f.offset = len(items)
	f.mu.Unlock()

	return pageResult(items, req.Limit), nil
}

// FetchNext implements the batch.Fetcher interface. New params restart
// paging from offset zero.
func (f *LimitOffset[P, T]) FetchNext(ctx context.Context, params *P, _ batch.FetchResult[[]T]) (batch.FetchResult[[]T], error) {
	f.mu.Lock()
	req := Request[P]{
		Offset: f.offset,
		Limit:  f.limit,
		Params: f.params,
	}
	f.mu.Unlock()

	if params != nil {
		req.Params = *params
		req.Offset = 0
	}

	items, err := f.fetch(ctx, req)
	if err != nil {
		return batch.FetchResult[[]T]{}, err
	}

	f.mu.Lock()
	f.params = req.Params
	f.offset = req.Offset + len(items)
	f.mu.Unlock()

	return pageResult(items, req.Limit), nil
}

// Offset returns the number of items loaded since the last reload.
func (f *LimitOffset[P, T]) Offset() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

func pageResult[T any](items []T, limit int) batch.FetchResult[[]T] {
	return batch.Success(items, len(items) == 0, len(items) < limit)
}

// Slice returns a SubFetcher that pages over items. The params are ignored.
func Slice[P, T any](items []T) SubFetcher[P, T] {
	return func(ctx context.Context, req Request[P]) ([]T, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Offset >= len(items) {
			return []T{}, nil
		}
		end := req.Offset + req.Limit
		if end > len(items) {
			end = len(items)
		}
		page := make([]T, end-req.Offset)
		copy(page, items[req.Offset:end])
		return page, nil
	}
}
