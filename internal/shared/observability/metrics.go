package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ploc_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ModulesDiscovered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ploc_modules_total",
		Help: "Number of modules discovered by the last run.",
	}, []string{"scope"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ploc_cache_lookups_total",
		Help: "Interface cache lookups by result (hit, miss, stale, corrupt).",
	}, []string{"result"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ploc_analysis_seconds",
		Help:    "Time spent on each stage of a run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	ReplacementsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ploc_replacements",
		Help: "Number of indirect imports found by the last run.",
	})

	FilesRewrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ploc_files_rewritten_total",
		Help: "Total number of files rewritten by fix runs.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ploc_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// WriteTextfile dumps the default registry in the node exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
