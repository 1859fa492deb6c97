// Package metrics exposes the process's prometheus collectors (spec
// §6 /metrics), grounded on the client_golang idiom shared by the
// teacher and cuemby-warren's pkg/metrics package: package-level
// collectors registered once against the default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SweepLocksCleared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_sweep_locks_cleared_total",
		Help: "Stale physical-locator locks cleared by the lock/timeout sweeper.",
	})
	SweepObjectsPromoted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_sweep_objects_promoted_total",
		Help: "Logical objects promoted from pending to ready by the lock/timeout sweeper.",
	})
	EvictionLocatorsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_eviction_locators_expired_total",
		Help: "Physical locators found past their TTL window by the eviction controller.",
	})
	EvictionLocatorsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_eviction_locators_deleted_total",
		Help: "Physical locators successfully removed after a confirmed remote delete.",
	})
	EvictionRollbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_eviction_rollbacks_total",
		Help: "clean_object batches rolled back after a remote_store delete_objects failure.",
	})
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_locate_object_cache_hits_total",
		Help: "locate_object calls served by a locator already live in the client's region.",
	}, []string{"region"})
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_locate_object_cache_misses_total",
		Help: "locate_object calls that required a cross-region transfer-policy decision.",
	}, []string{"region"})
	SkystoreHistogramSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geogw_skystore_histogram_buckets",
		Help: "Number of populated inter-arrival histogram buckets, per destination region.",
	}, []string{"region"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_requests_total",
		Help: "Request API calls by operation and outcome.",
	}, []string{"op", "outcome"})
	SkystoreTraceIndex = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geogw_skystore_trace_index",
		Help: "Monotonic count of skystore/always_store-tracked locate_object reads.",
	})
)

func init() {
	prometheus.MustRegister(
		SweepLocksCleared,
		SweepObjectsPromoted,
		EvictionLocatorsExpired,
		EvictionLocatorsDeleted,
		EvictionRollbacks,
		CacheHits,
		CacheMisses,
		SkystoreHistogramSize,
		RequestsTotal,
		SkystoreTraceIndex,
	)
}
