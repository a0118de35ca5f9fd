// Package server exposes lists stored in Redis over HTTP. Each list is
// loaded page by page by a batch.Source and its loaded batches can be
// refreshed from the current item values.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MasterOfBinary/batchlist/batch"
	"github.com/MasterOfBinary/batchlist/internal/config"
	"github.com/MasterOfBinary/batchlist/keys"
	"github.com/MasterOfBinary/batchlist/metrics"
	"github.com/MasterOfBinary/batchlist/pipeline"
	"github.com/MasterOfBinary/batchlist/processor"
	batchsync "github.com/MasterOfBinary/batchlist/sync"
)

// itemList is a list of items keyed by batch UUIDs and refreshed with a
// free-form reason.
type itemList = batchsync.List[string, []Item, string, string]

// Server serves the lists. Create one with New and Close it when done.
type Server struct {
	client   redis.Cmdable
	redis    config.RedisConfig
	source   config.SourceConfig
	logger   *zap.Logger
	stats    *metrics.Prometheus
	gatherer prometheus.Gatherer

	mu     sync.Mutex
	lists  map[string]*itemList
	closed bool
}

// New creates a Server reading from client. Metrics are registered with reg.
func New(client redis.Cmdable, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*Server, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	stats, err := metrics.NewPrometheus(reg, "batchlist", nil)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &Server{
		client:   client,
		redis:    cfg.Redis,
		source:   cfg.Source,
		logger:   logger,
		stats:    stats,
		gatherer: reg,
		lists:    make(map[string]*itemList),
	}, nil
}

// Router returns the HTTP handler of the server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/lists/{name}", s.handleState).Methods("GET")
	r.HandleFunc("/lists/{name}", s.handleReset).Methods("DELETE")
	r.HandleFunc("/lists/{name}/reload", s.handleReload).Methods("POST")
	r.HandleFunc("/lists/{name}/more", s.handleLoadMore).Methods("POST")
	r.HandleFunc("/lists/{name}/refresh", s.handleRefresh).Methods("POST")
	return r
}

// Stats returns the statistics of all lists.
func (s *Server) Stats() batch.Stats {
	return s.stats.GetStats()
}

// Close closes every list. Requests made afterwards fail.
func (s *Server) Close() {
	s.mu.Lock()
	lists := s.lists
	s.lists = make(map[string]*itemList)
	s.closed = true
	s.mu.Unlock()

	for _, l := range lists {
		l.Close()
	}
}

// lookup returns the list with the given name. If create is set a missing
// list is created; otherwise lookup returns nil for it.
func (s *Server) lookup(name string, create bool) (*itemList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, batchsync.ErrClosed
	}
	if l, ok := s.lists[name]; ok || !create {
		return l, nil
	}

	l, err := s.newList(name)
	if err != nil {
		return nil, err
	}
	s.lists[name] = l
	return l, nil
}

func (s *Server) newList(name string) (*itemList, error) {
	pages, err := pipeline.NewRedisList(s.client, DecodeItem, &pipeline.RedisListOptions{
		KeyPrefix:  s.redis.KeyPrefix,
		FirstLimit: s.source.FirstLimit,
		Limit:      s.source.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("create list %s: %w", name, err)
	}

	itemKey := func(item Item) string { return s.redis.ItemPrefix + item.ID }
	refresher := pipeline.NewRedisRefresher[string, Item, string](s.client, itemKey, DecodeItem)

	logger := s.logger.With(zap.String("list", name))
	updater := processor.WrapWithLogging[string, []Item, string](refresher, logger.Sugar(), "redis-refresh")

	values := s.source.Values()
	l := batchsync.NewListWithUpdates[string, []Item, string, string](pages, updater, keys.UUIDString{}, &batch.Options{
		Config: batch.NewConstantConfig(&values),
		Limits: s.source.Limits(),
		Logger: logger,
		Stats:  s.stats,
	})

	logger.Info("List created", zap.String("key", pages.Key(name)))
	return l, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
