package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MasterOfBinary/batchlist/internal/config"
	"github.com/MasterOfBinary/batchlist/internal/server"
)

type listState struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Fetches int    `json:"fetches"`
	Batches []struct {
		Key   string        `json:"key"`
		Items []server.Item `json:"items"`
	} `json:"batches"`
}

func item(t *testing.T, id string, price float64) string {
	t.Helper()
	data, err := json.Marshal(server.Item{ID: id, Name: strings.ToUpper(id), Price: price})
	require.NoError(t, err)
	return string(data)
}

func newTestServer(t *testing.T) (*miniredis.Miniredis, *server.Server, *httptest.Server) {
	t.Helper()

	mr := miniredis.RunT(t)
	_, err := mr.RPush("list:coins", item(t, "btc", 1), item(t, "eth", 1), item(t, "sol", 1))
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Default()
	cfg.Redis.KeyPrefix = "list:"
	cfg.Redis.ItemPrefix = "item:"
	cfg.Source.FirstLimit = 2
	cfg.Source.Limit = 2

	srv, err := server.New(client, &cfg, zaptest.NewLogger(t), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return mr, srv, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeState(t *testing.T, data []byte) listState {
	t.Helper()
	var state listState
	require.NoError(t, json.Unmarshal(data, &state), string(data))
	return state
}

func TestServer_Health(t *testing.T) {
	_, _, ts := newTestServer(t)

	status, body := do(t, ts, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_Pagination(t *testing.T) {
	_, srv, ts := newTestServer(t)

	status, body := do(t, ts, "POST", "/lists/coins/reload", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	state := decodeState(t, body)
	assert.Equal(t, "coins", state.Name)
	assert.Equal(t, "Paginating", state.Status)
	assert.Equal(t, 1, state.Fetches)
	require.Len(t, state.Batches, 1)
	assert.NotEmpty(t, state.Batches[0].Key)
	assert.Equal(t, "btc", state.Batches[0].Items[0].ID)
	assert.Equal(t, "eth", state.Batches[0].Items[1].ID)

	status, body = do(t, ts, "POST", "/lists/coins/more", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	state = decodeState(t, body)
	assert.Equal(t, "EndOfPagination", state.Status)
	require.Len(t, state.Batches, 2)
	require.Len(t, state.Batches[1].Items, 1)
	assert.Equal(t, "sol", state.Batches[1].Items[0].ID)

	status, _ = do(t, ts, "POST", "/lists/coins/more", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = do(t, ts, "GET", "/lists/coins", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeState(t, body).Batches, 2)

	require.Eventually(t, func() bool {
		return srv.Stats().BatchesAppended == 2
	}, time.Second, 5*time.Millisecond)
}

func TestServer_Refresh(t *testing.T) {
	mr, _, ts := newTestServer(t)

	status, body := do(t, ts, "POST", "/lists/coins/reload", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	key := decodeState(t, body).Batches[0].Key

	require.NoError(t, mr.Set("item:eth", item(t, "eth", 42)))

	status, body = do(t, ts, "POST", "/lists/coins/refresh", server.RefreshRequest{Keys: []string{key}, Reason: "prices"})
	require.Equal(t, http.StatusOK, status, string(body))

	var refreshed struct {
		Batches []struct {
			Key   string        `json:"key"`
			Items []server.Item `json:"items"`
		} `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(body, &refreshed))
	require.Len(t, refreshed.Batches, 1)
	assert.Equal(t, key, refreshed.Batches[0].Key)
	assert.Equal(t, 1.0, refreshed.Batches[0].Items[0].Price, "items without a stored value are kept")
	assert.Equal(t, 42.0, refreshed.Batches[0].Items[1].Price)

	_, body = do(t, ts, "GET", "/lists/coins", nil)
	assert.Equal(t, 42.0, decodeState(t, body).Batches[0].Items[1].Price)

	t.Run("all batches without keys", func(t *testing.T) {
		require.NoError(t, mr.Set("item:btc", item(t, "btc", 7)))

		status, body := do(t, ts, "POST", "/lists/coins/refresh", nil)
		require.Equal(t, http.StatusOK, status, string(body))

		_, body = do(t, ts, "GET", "/lists/coins", nil)
		assert.Equal(t, 7.0, decodeState(t, body).Batches[0].Items[0].Price)
	})

	t.Run("invalid body", func(t *testing.T) {
		req, err := http.NewRequest("POST", ts.URL+"/lists/coins/refresh", strings.NewReader("{"))
		require.NoError(t, err)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("redis error", func(t *testing.T) {
		mr.SetError("ERR server down")
		defer mr.SetError("")

		status, body := do(t, ts, "POST", "/lists/coins/refresh", nil)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, string(body), "server down")
	})
}

func TestServer_ReloadError(t *testing.T) {
	mr, _, ts := newTestServer(t)

	mr.SetError("ERR server down")
	status, body := do(t, ts, "POST", "/lists/coins/reload", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, string(body), "server down")

	status, body = do(t, ts, "GET", "/lists/coins", nil)
	require.Equal(t, http.StatusOK, status)
	state := decodeState(t, body)
	assert.Equal(t, "InitialLoadingError", state.Status)
	assert.Contains(t, state.Error, "server down")

	mr.SetError("")
	status, body = do(t, ts, "POST", "/lists/coins/reload", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Paginating", decodeState(t, body).Status)
}

func TestServer_Reset(t *testing.T) {
	_, _, ts := newTestServer(t)

	status, _ := do(t, ts, "POST", "/lists/coins/reload", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, "DELETE", "/lists/coins", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body := do(t, ts, "GET", "/lists/coins", nil)
	require.Equal(t, http.StatusOK, status)
	state := decodeState(t, body)
	assert.Equal(t, "None", state.Status)
	assert.Empty(t, state.Batches)
	assert.Equal(t, 0, state.Fetches)
}

func TestServer_UnknownList(t *testing.T) {
	_, _, ts := newTestServer(t)

	for _, req := range []struct{ method, path string }{
		{"GET", "/lists/nope"},
		{"POST", "/lists/nope/more"},
		{"POST", "/lists/nope/refresh"},
		{"DELETE", "/lists/nope"},
	} {
		status, _ := do(t, ts, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, status, "%s %s", req.method, req.path)
	}

	status, _ := do(t, ts, "PUT", "/lists/nope", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestServer_Metrics(t *testing.T) {
	_, _, ts := newTestServer(t)

	status, _ := do(t, ts, "POST", "/lists/coins/reload", nil)
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		status, body := do(t, ts, "GET", "/metrics", nil)
		return status == http.StatusOK &&
			strings.Contains(string(body), `batchlist_fetches_total{kind="first",result="success"} 1`)
	}, time.Second, 10*time.Millisecond)
}

func TestServer_Closed(t *testing.T) {
	_, srv, ts := newTestServer(t)

	srv.Close()
	status, _ := do(t, ts, "POST", "/lists/coins/reload", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestNew_Errors(t *testing.T) {
	cfg := config.Default()
	_, err := server.New(nil, &cfg, nil, nil)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = server.New(client, nil, nil, nil)
	assert.Error(t, err)

	reg := prometheus.NewRegistry()
	_, err = server.New(client, &cfg, nil, reg)
	require.NoError(t, err)
	_, err = server.New(client, &cfg, nil, reg)
	assert.Error(t, err, "metrics cannot be registered twice")
}

func TestDecodeItem(t *testing.T) {
	got, err := server.DecodeItem(`{"id":"btc","price":3}`)
	require.NoError(t, err)
	assert.Equal(t, server.Item{ID: "btc", Price: 3}, got)

	_, err = server.DecodeItem(`{"name":"no id"}`)
	assert.Error(t, err)
	_, err = server.DecodeItem(`not json`)
	assert.Error(t, err)
}
