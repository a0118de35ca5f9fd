// Package metrics exports the statistics of a batch.Source to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/MasterOfBinary/batchlist/batch"
)

// DefaultNamespace is the metric namespace used when none is given.
const DefaultNamespace = "batchlist"

// Prometheus is a batch.StatsCollector that exports every statistic as a
// Prometheus metric. It also keeps a batch.BasicStatsCollector, so GetStats
// works as usual.
//
// Exported metrics, with the default namespace:
//
//	batchlist_fetches_started_total{kind}
//	batchlist_fetches_total{kind, result}
//	batchlist_fetch_duration_seconds{kind}
//	batchlist_batches_appended_total
//	batchlist_updates_started_total
//	batchlist_updates_total{result}
//	batchlist_update_duration_seconds
//	batchlist_actions_dropped_total{reason}
type Prometheus struct {
	basic *batch.BasicStatsCollector

	fetchesStarted  *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	batchesAppended prometheus.Counter
	updatesStarted  prometheus.Counter
	updates         *prometheus.CounterVec
	updateDuration  prometheus.Histogram
	actionsDropped  *prometheus.CounterVec
}

// NewPrometheus creates a Prometheus collector and registers its metrics
// with reg. constLabels are added to every metric; use them to tell several
// Sources apart. An empty namespace means DefaultNamespace.
func NewPrometheus(reg prometheus.Registerer, namespace string, constLabels prometheus.Labels) (*Prometheus, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := &Prometheus{
		basic: batch.NewBasicStatsCollector(),
		fetchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "fetches_started_total",
			Help:        "Page fetches started, by kind (first or next).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "fetches_total",
			Help:        "Page fetches completed without being cancelled, by kind and result.",
			ConstLabels: constLabels,
		}, []string{"kind", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "fetch_duration_seconds",
			Help:        "Duration of completed page fetches.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"kind"}),
		batchesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "batches_appended_total",
			Help:        "Pages added to the list.",
			ConstLabels: constLabels,
		}),
		updatesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "updates_started_total",
			Help:        "Update jobs that started running.",
			ConstLabels: constLabels,
		}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "updates_total",
			Help:        "Update jobs completed without being cancelled, by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "update_duration_seconds",
			Help:        "Duration of completed update jobs.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		actionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actions_dropped_total",
			Help:        "Actions that were ignored or rejected, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	err := multierr.Combine(
		reg.Register(p.fetchesStarted),
		reg.Register(p.fetches),
		reg.Register(p.fetchDuration),
		reg.Register(p.batchesAppended),
		reg.Register(p.updatesStarted),
		reg.Register(p.updates),
		reg.Register(p.updateDuration),
		reg.Register(p.actionsDropped),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MustNewPrometheus is like NewPrometheus but panics if the metrics can't
// be registered.
func MustNewPrometheus(reg prometheus.Registerer, namespace string, constLabels prometheus.Labels) *Prometheus {
	p, err := NewPrometheus(reg, namespace, constLabels)
	if err != nil {
		panic(err)
	}
	return p
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFetchStart implements the batch.StatsCollector interface.
func (p *Prometheus) RecordFetchStart(kind batch.FetchKind) {
	p.basic.RecordFetchStart(kind)
	p.fetchesStarted.WithLabelValues(kind.String()).Inc()
}

// RecordFetchComplete implements the batch.StatsCollector interface.
func (p *Prometheus) RecordFetchComplete(kind batch.FetchKind, duration time.Duration, err error) {
	p.basic.RecordFetchComplete(kind, duration, err)
	p.fetches.WithLabelValues(kind.String(), result(err)).Inc()
	p.fetchDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
}

// RecordBatchAppended implements the batch.StatsCollector interface.
func (p *Prometheus) RecordBatchAppended() {
	p.basic.RecordBatchAppended()
	p.batchesAppended.Inc()
}

// RecordUpdateStart implements the batch.StatsCollector interface.
func (p *Prometheus) RecordUpdateStart() {
	p.basic.RecordUpdateStart()
	p.updatesStarted.Inc()
}

// RecordUpdateComplete implements the batch.StatsCollector interface.
func (p *Prometheus) RecordUpdateComplete(duration time.Duration, err error) {
	p.basic.RecordUpdateComplete(duration, err)
	p.updates.WithLabelValues(result(err)).Inc()
	p.updateDuration.Observe(duration.Seconds())
}

// RecordActionDropped implements the batch.StatsCollector interface.
func (p *Prometheus) RecordActionDropped(reason string) {
	p.basic.RecordActionDropped(reason)
	p.actionsDropped.WithLabelValues(reason).Inc()
}

// GetStats implements the batch.StatsCollector interface.
func (p *Prometheus) GetStats() batch.Stats {
	return p.basic.GetStats()
}
