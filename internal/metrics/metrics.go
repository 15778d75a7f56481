// Package metrics exposes engine measurements as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/notify"
)

const namespace = "tabstash"

// Recorder implements ops.Observer on its own registry.
type Recorder struct {
	registry     *prometheus.Registry
	transactions *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	groups       prometheus.Gauge
	evicted      *prometheus.CounterVec
}

// New returns a recorder with the Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Engine transactions by operation and result code.",
		}, []string{"op", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time spent running engine transactions, including storage I/O.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups",
			Help:      "Groups in the collection after the last committed write.",
		}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_evicted_total",
			Help:      "Groups removed by the retention policy.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(
		r.transactions,
		r.durations,
		r.groups,
		r.evicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// TransactionDone records one finished transaction.
func (r *Recorder) TransactionDone(op string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = string(errors.As(err).Code)
	}
	r.transactions.WithLabelValues(op, result).Inc()
	r.durations.WithLabelValues(op).Observe(elapsed.Seconds())
}

// GroupsStored sets the collection size gauge.
func (r *Recorder) GroupsStored(n int) {
	r.groups.Set(float64(n))
}

// GroupsEvicted counts evictions by reason.
func (r *Recorder) GroupsEvicted(reason string, n int) {
	if n > 0 {
		r.evicted.WithLabelValues(reason).Add(float64(n))
	}
}

// WatchBroadcaster exports subscriber and dropped event counts of b.
func (r *Recorder) WatchBroadcaster(b *notify.Broadcaster) {
	r.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Active change feed subscribers.",
		}, func() float64 { return float64(b.Subscribers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Change events dropped because a subscriber was not reading.",
		}, func() float64 { return float64(b.Dropped()) }),
	)
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
