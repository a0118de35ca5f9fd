package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterOfBinary/batchlist/batch"
	"github.com/MasterOfBinary/batchlist/keys"
	"github.com/MasterOfBinary/batchlist/source"
	"github.com/MasterOfBinary/batchlist/sync"
)

var _ batch.StatsCollector = (*Prometheus)(nil)

func TestPrometheus_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "", prometheus.Labels{"list": "coins"})
	require.NoError(t, err)

	p.RecordFetchStart(batch.FetchFirst)
	p.RecordFetchComplete(batch.FetchFirst, 100*time.Millisecond, nil)
	p.RecordFetchStart(batch.FetchNext)
	p.RecordFetchComplete(batch.FetchNext, time.Second, errors.New("boom"))
	p.RecordBatchAppended()
	p.RecordUpdateStart()
	p.RecordUpdateComplete(10*time.Millisecond, nil)
	p.RecordActionDropped(batch.DropLoadMoreActive)
	p.RecordActionDropped(batch.DropLoadMoreActive)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.fetchesStarted.WithLabelValues("first")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fetches.WithLabelValues("first", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fetches.WithLabelValues("next", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.batchesAppended))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.updatesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.updates.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.actionsDropped.WithLabelValues(batch.DropLoadMoreActive)))

	expected := `
# HELP batchlist_batches_appended_total Pages added to the list.
# TYPE batchlist_batches_appended_total counter
batchlist_batches_appended_total{list="coins"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "batchlist_batches_appended_total"))

	s := p.GetStats()
	assert.EqualValues(t, 2, s.FetchesCompleted)
	assert.EqualValues(t, 1, s.FetchErrors[batch.FetchNext])
	assert.EqualValues(t, 2, s.ActionsDropped[batch.DropLoadMoreActive])
}

func TestNewPrometheus_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "app", nil)
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "app", nil)
	assert.Error(t, err, "registering the same metrics twice fails")

	_, err = NewPrometheus(reg, "other", nil)
	assert.NoError(t, err)

	assert.Panics(t, func() { MustNewPrometheus(reg, "app", nil) })
}

func TestPrometheus_WithSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := MustNewPrometheus(reg, "", nil)

	pages, err := source.NewLimitOffset(source.LimitOffsetConfig[string, int]{
		Limit: 2,
		Fetch: source.Slice[string]([]int{1, 2, 3}),
	})
	require.NoError(t, err)

	list := sync.NewList[int, []int, string](pages, keys.Increment[int]{}, &batch.Options{Stats: stats})
	defer list.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = list.Reload(ctx, "")
	require.NoError(t, err)
	_, err = list.LoadMore(ctx, nil)
	require.NoError(t, err)

	// Appended batches are counted right after the state changed.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(stats.batchesAppended) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(stats.fetches.WithLabelValues("next", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(stats.fetchDuration.WithLabelValues("first").(prometheus.Histogram)))
}
