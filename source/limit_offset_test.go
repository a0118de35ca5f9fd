package source

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFetch struct {
	mu       sync.Mutex
	requests []Request[string]
	fetch    SubFetcher[string, int]
}

func (r *recordingFetch) Fetch(ctx context.Context, req Request[string]) ([]int, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.fetch(ctx, req)
}

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestLimitOffsetConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LimitOffsetConfig[string, int]
		wantErr bool
	}{
		{
			name:   "valid",
			config: LimitOffsetConfig[string, int]{Limit: 10, Fetch: Slice[string](numbers(3))},
		},
		{
			name:    "missing fetch",
			config:  LimitOffsetConfig[string, int]{Limit: 10},
			wantErr: true,
		},
		{
			name:    "zero limit",
			config:  LimitOffsetConfig[string, int]{Fetch: Slice[string](numbers(3))},
			wantErr: true,
		},
		{
			name:    "negative first limit",
			config:  LimitOffsetConfig[string, int]{FirstLimit: -1, Limit: 2, Fetch: Slice[string](numbers(3))},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			_, err = NewLimitOffset(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLimitOffset() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("all problems are reported", func(t *testing.T) {
		err := LimitOffsetConfig[string, int]{FirstLimit: -1}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sub-fetcher")
		assert.Contains(t, err.Error(), "limit must be positive")
		assert.Contains(t, err.Error(), "first limit")
	})
}

func TestLimitOffset_Paging(t *testing.T) {
	ctx := context.Background()
	rec := &recordingFetch{fetch: Slice[string](numbers(10))}
	f, err := NewLimitOffset(LimitOffsetConfig[string, int]{
		FirstLimit: 4,
		Limit:      3,
		Fetch:      rec.Fetch,
	})
	require.NoError(t, err)

	first, err := f.FetchFirst(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, first.Data)
	assert.False(t, first.Last)
	assert.False(t, first.Empty)

	second, err := f.FetchNext(ctx, nil, first)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, second.Data)
	assert.False(t, second.Last)

	third, err := f.FetchNext(ctx, nil, second)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 9}, third.Data)
	assert.False(t, third.Last, "a full page is never the last one")

	fourth, err := f.FetchNext(ctx, nil, third)
	require.NoError(t, err)
	assert.Empty(t, fourth.Data)
	assert.True(t, fourth.Empty)
	assert.True(t, fourth.Last)
	assert.Equal(t, 10, f.Offset())

	assert.Equal(t, []Request[string]{
		{Offset: 0, Limit: 4, Params: "q", First: true},
		{Offset: 4, Limit: 3, Params: "q"},
		{Offset: 7, Limit: 3, Params: "q"},
		{Offset: 10, Limit: 3, Params: "q"},
	}, rec.requests)
}

func TestLimitOffset_ShortPageIsLast(t *testing.T) {
	f, err := NewLimitOffset(LimitOffsetConfig[string, int]{Limit: 5, Fetch: Slice[string](numbers(3))})
	require.NoError(t, err)

	res, err := f.FetchFirst(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, res.Data)
	assert.True(t, res.Last)
	assert.False(t, res.Empty)
}

func TestLimitOffset_NewParamsRestart(t *testing.T) {
	ctx := context.Background()
	rec := &recordingFetch{fetch: Slice[string](numbers(10))}
	f, err := NewLimitOffset(LimitOffsetConfig[string, int]{Limit: 2, Fetch: rec.Fetch})
	require.NoError(t, err)

	first, err := f.FetchFirst(ctx, "a")
	require.NoError(t, err)
	_, err = f.FetchNext(ctx, nil, first)
	require.NoError(t, err)
	require.Equal(t, 4, f.Offset())

	params := "b"
	res, err := f.FetchNext(ctx, &params, first)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Data)
	assert.Equal(t, Request[string]{Offset: 0, Limit: 2, Params: "b"}, rec.requests[2])

	_, err = f.FetchNext(ctx, nil, res)
	require.NoError(t, err)
	assert.Equal(t, Request[string]{Offset: 2, Limit: 2, Params: "b"}, rec.requests[3])

	// A reload starts over as well.
	_, err = f.FetchFirst(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Offset())
}

func TestLimitOffset_Error(t *testing.T) {
	ctx := context.Background()
	fail := true
	boom := errors.New("boom")
	f, err := NewLimitOffset(LimitOffsetConfig[string, int]{
		Limit: 2,
		Fetch: func(ctx context.Context, req Request[string]) ([]int, error) {
			if fail {
				return nil, boom
			}
			return Slice[string](numbers(5))(ctx, req)
		},
	})
	require.NoError(t, err)

	_, err = f.FetchFirst(ctx, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.Offset())

	fail = false
	first, err := f.FetchFirst(ctx, "")
	require.NoError(t, err)

	fail = true
	_, err = f.FetchNext(ctx, nil, first)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, f.Offset(), "a failed page does not move the offset")
}

func TestSlice(t *testing.T) {
	fetch := Slice[struct{}]([]string{"a", "b", "c"})

	tests := []struct {
		offset, limit int
		want          []string
	}{
		{0, 2, []string{"a", "b"}},
		{2, 2, []string{"c"}},
		{3, 2, []string{}},
		{10, 1, []string{}},
	}
	for _, test := range tests {
		got, err := fetch(context.Background(), Request[struct{}]{Offset: test.offset, Limit: test.limit})
		require.NoError(t, err)
		assert.Equal(t, test.want, got, "offset %d limit %d", test.offset, test.limit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetch(ctx, Request[struct{}]{Limit: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
