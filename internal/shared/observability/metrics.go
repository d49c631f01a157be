package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptpack_scan_seconds",
		Help:    "Time spent scanning a repository root.",
		Buckets: prometheus.DefBuckets,
	})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptpack_extraction_seconds",
		Help:    "Time spent extracting import tokens from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promptpack_graph_nodes_total",
		Help: "Total number of modules in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promptpack_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	FilesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpack_files_skipped_total",
		Help: "Total number of files the scanner saw but did not analyze.",
	}, []string{"reason"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptpack_cache_hits_total",
		Help: "Total number of file analyses served from the cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptpack_cache_misses_total",
		Help: "Total number of file analyses that required a fresh read.",
	})

	ClusteringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptpack_clustering_seconds",
		Help:    "Time spent building the module dendrogram.",
		Buckets: prometheus.DefBuckets,
	})

	SelectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptpack_selection_seconds",
		Help:    "Time spent selecting modules under the content budget.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	PromptBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptpack_prompt_bytes",
		Help:    "Size of assembled clipboard payloads.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptpack_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	CopyEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptpack_copy_events_total",
		Help: "Total number of clipboard copy events recorded.",
	})
)
