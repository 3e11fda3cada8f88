package luape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics exposes SamplesCache activity to Prometheus.
type CacheMetrics struct {
	Hits             prometheus.Counter
	Misses           prometheus.Counter
	Promotions       prometheus.Counter
	Evictions        prometheus.Counter
	CachedBytes      prometheus.Gauge
	EvaluatedSamples *prometheus.CounterVec
	ComputingTime    *prometheus.HistogramVec
}

// NewCacheMetrics creates cache metrics registered with reg. A nil reg
// creates unregistered collectors.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	factory := promauto.With(reg)
	return &CacheMetrics{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "luape_cache_hits_total",
			Help: "Sample requests answered from a cached node",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "luape_cache_misses_total",
			Help: "Sample requests that required evaluation",
		}),
		Promotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "luape_cache_promotions_total",
			Help: "Nodes cached over the full population after repeated requests",
		}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "luape_cache_evictions_total",
			Help: "Nodes evicted to respect the cache size ceiling",
		}),
		CachedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "luape_cache_bytes",
			Help: "Estimated size of cached node outputs",
		}),
		EvaluatedSamples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luape_evaluated_samples_total",
			Help: "Number of node evaluations over examples",
		}, []string{"class"}),
		ComputingTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luape_node_computing_seconds",
			Help:    "Time spent evaluating a node over an index set",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"class"}),
	}
}

// LearnerMetrics exposes tree growing activity to Prometheus.
type LearnerMetrics struct {
	Splits    prometheus.Counter
	Leaves    *prometheus.CounterVec
	SplitGain prometheus.Histogram
}

// NewLearnerMetrics creates learner metrics registered with reg. A nil reg
// creates unregistered collectors.
func NewLearnerMetrics(reg prometheus.Registerer) *LearnerMetrics {
	factory := promauto.With(reg)
	return &LearnerMetrics{
		Splits: factory.NewCounter(prometheus.CounterOpts{
			Name: "luape_tree_splits_total",
			Help: "Test nodes created by the tree learner",
		}),
		Leaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luape_tree_leaves_total",
			Help: "Leaves created by the tree learner, by stopping reason",
		}, []string{"reason"}),
		SplitGain: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "luape_tree_split_gain",
			Help:    "Objective improvement of accepted splits",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}
}
