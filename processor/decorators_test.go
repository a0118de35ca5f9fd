package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MasterOfBinary/batchlist/batch"
)

func failing(err error) batch.UpdateFetcher[int, []string, string] {
	return batch.UpdateFetcherFunc[int, []string, string](func(context.Context, []page, string) ([]page, error) {
		return nil, err
	})
}

func TestLogging_FetchUpdate(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()

	t.Run("logs start and completion", func(t *testing.T) {
		p := WrapWithLogging[int, []string, string](&recordingFetcher{}, logger, "rec")

		res, err := p.FetchUpdate(ctx, []page{{Key: 1}, {Key: 2}}, "")
		require.NoError(t, err)
		assert.Len(t, res, 2)

		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "Update starting", entries[0].Message)
		assert.Equal(t, "rec", entries[0].ContextMap()["fetcher"])
		assert.Equal(t, "Update completed", entries[1].Message)
		assert.EqualValues(t, 2, entries[1].ContextMap()["returned"])
	})

	t.Run("logs failures", func(t *testing.T) {
		p := WrapWithLogging(failing(errors.New("boom")), logger, "")

		_, err := p.FetchUpdate(ctx, nil, "")
		require.Error(t, err)

		failed := logs.FilterMessage("Update failed").TakeAll()
		require.Len(t, failed, 1)
		assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
		assert.Contains(t, failed[0].ContextMap()["fetcher"], "UpdateFetcherFunc")
		logs.TakeAll()
	})

	t.Run("passes through without a logger", func(t *testing.T) {
		p := WrapWithLogging[int, []string, string](&recordingFetcher{}, nil, "")
		res, err := p.FetchUpdate(ctx, []page{{Key: 1}}, "")
		assert.NoError(t, err)
		assert.Len(t, res, 1)
		assert.Zero(t, logs.Len())
	})

	t.Run("nil fetcher", func(t *testing.T) {
		res, err := (&Logging[int, []string, string]{Logger: logger}).FetchUpdate(ctx, []page{{Key: 1}}, "")
		assert.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestStats_FetchUpdate(t *testing.T) {
	ctx := context.Background()
	stats := batch.NewBasicStatsCollector()

	ok := WrapWithStats[int, []string, string](&recordingFetcher{}, stats)
	bad := WrapWithStats(failing(errors.New("boom")), stats)

	_, err := ok.FetchUpdate(ctx, []page{{Key: 1}}, "")
	require.NoError(t, err)
	_, err = bad.FetchUpdate(ctx, nil, "")
	require.Error(t, err)

	s := stats.GetStats()
	assert.EqualValues(t, 2, s.UpdatesStarted)
	assert.EqualValues(t, 2, s.UpdatesCompleted)
	assert.EqualValues(t, 1, s.UpdateErrors)

	t.Run("passes through without stats", func(t *testing.T) {
		res, err := WrapWithStats[int, []string, string](&recordingFetcher{}, nil).FetchUpdate(ctx, []page{{Key: 1}}, "")
		assert.NoError(t, err)
		assert.Len(t, res, 1)
	})
}
