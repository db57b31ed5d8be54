// Package metrics exposes Prometheus instrumentation for the resolution
// pipeline. Init must be called once at startup; until then every record
// helper is a no-op, which keeps tests free of global registry state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsIn        prometheus.Counter
	ListingsDropped   *prometheus.CounterVec
	PairsCompared     prometheus.Counter
	PairsMatched      prometheus.Counter
	ClustersBuilt     prometheus.Counter
	FetchUnits        prometheus.Counter
	FetchFailures     prometheus.Counter
	ClassifierRescues prometheus.Counter
	GateDrops         *prometheus.CounterVec
	RunDuration       prometheus.Histogram

	initialized bool
)

// Init registers all pipeline metrics with the default registry.
func Init() {
	ListingsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_listings_in_total",
		Help: "Raw listings received across all runs.",
	})
	ListingsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolver_listings_dropped_total",
		Help: "Listings dropped before matching, by reason.",
	}, []string{"reason"})
	PairsCompared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_pairs_compared_total",
		Help: "Listing pairs scored by the matcher.",
	})
	PairsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_pairs_matched_total",
		Help: "Listing pairs that met the match threshold.",
	})
	ClustersBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_clusters_built_total",
		Help: "Property clusters produced.",
	})
	FetchUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_fetch_units_total",
		Help: "Detail fetch units issued, one per (property, source).",
	})
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_fetch_failures_total",
		Help: "Detail fetch units degraded to an empty payload.",
	})
	ClassifierRescues = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_classifier_rescues_total",
		Help: "Floorplans recovered by the pixel classifier fallback.",
	})
	GateDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolver_gate_drops_total",
		Help: "Properties dropped by the floorplan gate, by reason.",
	}, []string{"reason"})
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resolver_run_duration_seconds",
		Help:    "End-to-end pipeline run duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	initialized = true
}

// Enabled reports whether Init has run.
func Enabled() bool { return initialized }

// ObserveRun records the aggregate counters of one pipeline run.
func ObserveRun(in, pairs, matches, clusters, fetchUnits, fetchFailures, rescues int,
	invalid, duplicates int, gateDrops map[string]int, elapsed time.Duration) {
	if !initialized {
		return
	}
	ListingsIn.Add(float64(in))
	ListingsDropped.WithLabelValues("invalid").Add(float64(invalid))
	ListingsDropped.WithLabelValues("duplicate").Add(float64(duplicates))
	PairsCompared.Add(float64(pairs))
	PairsMatched.Add(float64(matches))
	ClustersBuilt.Add(float64(clusters))
	FetchUnits.Add(float64(fetchUnits))
	FetchFailures.Add(float64(fetchFailures))
	ClassifierRescues.Add(float64(rescues))
	for reason, n := range gateDrops {
		GateDrops.WithLabelValues(reason).Add(float64(n))
	}
	RunDuration.Observe(elapsed.Seconds())
}
