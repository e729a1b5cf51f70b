// Package metrics exposes Prometheus counters describing how fetches were
// resolved (memory, disk, network) and how often the byte stores failed.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeMemoryHit = "memory_hit"
	OutcomeDiskHit   = "disk_hit"
	OutcomeStale     = "stale"
	OutcomeMiss      = "miss"

	TierDisk   = "disk"
	TierMemory = "memory"
	TierTemp   = "temp_file"
)

type Recorder struct {
	registry      *prometheus.Registry
	lookups       *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchcache_lookups_total",
		Help: "Cache lookups by result shape and outcome",
	}, []string{"shape", "outcome"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchcache_network_fetches_total",
		Help: "Network fetches issued on cache miss",
	}, []string{"shape", "result"})

	storeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchcache_store_write_failures_total",
		Help: "Failed cache writes by tier",
	}, []string{"tier"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetchcache_network_fetch_seconds",
		Help:    "Network fetch latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"shape"})

	registry.MustRegister(lookups, fetches, storeFailures, fetchDuration)

	return &Recorder{
		registry:      registry,
		lookups:       lookups,
		fetches:       fetches,
		storeFailures: storeFailures,
		fetchDuration: fetchDuration,
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler 返回 Prometheus 文本格式的导出 handler。
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveLookup(shape, outcome string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(shape, outcome).Inc()
}

func (r *Recorder) ObserveFetch(shape string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetches.WithLabelValues(shape, result).Inc()
	r.fetchDuration.WithLabelValues(shape).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveStoreFailure(tier string) {
	if r == nil {
		return
	}
	r.storeFailures.WithLabelValues(tier).Inc()
}
