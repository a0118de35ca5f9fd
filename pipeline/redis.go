package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MasterOfBinary/batchlist/batch"
	"github.com/MasterOfBinary/batchlist/source"
)

// DecodeFunc turns a value stored in Redis into an item.
type DecodeFunc[T any] func(value string) (T, error)

// RedisListOptions provides configuration options for the RedisList.
type RedisListOptions struct {
	// KeyPrefix is prepended to the request params to get the key of the
	// list.
	KeyPrefix string

	// FirstLimit is the number of elements on the first page.
	// If zero, Limit is used.
	FirstLimit int

	// Limit is the number of elements on every later page.
	Limit int
}

// DefaultRedisListOptions returns sensible default options for a RedisList.
func DefaultRedisListOptions() *RedisListOptions {
	return &RedisListOptions{
		FirstLimit: 50,
		Limit:      20,
	}
}

// RedisList is a batch.Fetcher that pages over a Redis list. The request
// params name the list; each page is read with LRANGE and every element is
// decoded with the DecodeFunc. A missing list has no elements.
type RedisList[T any] struct {
	*source.LimitOffset[string, T]

	client redis.Cmdable
	decode DecodeFunc[T]
	prefix string
}

// NewRedisList creates a new RedisList reading from client. If options is
// nil, DefaultRedisListOptions is used.
func NewRedisList[T any](client redis.Cmdable, decode DecodeFunc[T], options *RedisListOptions) (*RedisList[T], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if decode == nil {
		return nil, errors.New("decode function cannot be nil")
	}
	if options == nil {
		options = DefaultRedisListOptions()
	}

	l := &RedisList[T]{
		client: client,
		decode: decode,
		prefix: options.KeyPrefix,
	}

	pages, err := source.NewLimitOffset(source.LimitOffsetConfig[string, T]{
		FirstLimit: options.FirstLimit,
		Limit:      options.Limit,
		Fetch:      l.fetch,
	})
	if err != nil {
		return nil, err
	}
	l.LimitOffset = pages

	return l, nil
}

// Key returns the Redis key of the list named by params.
func (l *RedisList[T]) Key(params string) string {
	return l.prefix + params
}

func (l *RedisList[T]) fetch(ctx context.Context, req source.Request[string]) ([]T, error) {
	key := l.Key(req.Params)
	start := int64(req.Offset)
	stop := start + int64(req.Limit) - 1

	values, err := l.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("LRANGE %s %d %d: %w", key, start, stop, err)
	}

	items := make([]T, len(values))
	for i, v := range values {
		if items[i], err = l.decode(v); err != nil {
			return nil, fmt.Errorf("decode element %d of %s: %w", req.Offset+i, key, err)
		}
	}
	return items, nil
}

// RedisRefresher is a batch.UpdateFetcher for batches holding a slice of
// items. Each item is stored in Redis under the key returned by KeyFunc; an
// update reads the current values of all items in the requested batches and
// replaces the items whose key exists. Items whose key is missing are kept.
//
// The batches are read with one MGET each, sent in a single pipeline. The
// update request is not used.
type RedisRefresher[K comparable, T, U any] struct {
	client redis.Cmdable
	key    func(T) string
	decode DecodeFunc[T]
}

// NewRedisRefresher creates a new RedisRefresher reading from client.
func NewRedisRefresher[K comparable, T, U any](client redis.Cmdable, key func(T) string, decode DecodeFunc[T]) *RedisRefresher[K, T, U] {
	return &RedisRefresher[K, T, U]{
		client: client,
		key:    key,
		decode: decode,
	}
}

// FetchUpdate implements the batch.UpdateFetcher interface.
func (r *RedisRefresher[K, T, U]) FetchUpdate(ctx context.Context, toUpdate []batch.Batch[K, []T], _ U) ([]batch.Batch[K, []T], error) {
	cmds := make([]*redis.SliceCmd, len(toUpdate))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, b := range toUpdate {
			if len(b.Data) == 0 {
				continue
			}
			keys := make([]string, len(b.Data))
			for j, item := range b.Data {
				keys[j] = r.key(item)
			}
			cmds[i] = pipe.MGet(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh %d batches: %w", len(toUpdate), err)
	}

	updated := make([]batch.Batch[K, []T], 0, len(toUpdate))
	for i, b := range toUpdate {
		if cmds[i] == nil {
			continue
		}

		items := make([]T, len(b.Data))
		copy(items, b.Data)
		for j, v := range cmds[i].Val() {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if items[j], err = r.decode(s); err != nil {
				return nil, fmt.Errorf("decode %s: %w", r.key(b.Data[j]), err)
			}
		}
		updated = append(updated, batch.Batch[K, []T]{Key: b.Key, Data: items})
	}

	return updated, nil
}
