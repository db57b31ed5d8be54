// Package pipeline wires the resolution stages together: validation,
// blocking, pairwise matching, clustering, detail enrichment and the
// floorplan gate.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/block"
	"github.com/lettings-radar/internal/cluster"
	"github.com/lettings-radar/internal/config"
	"github.com/lettings-radar/internal/enrich"
	"github.com/lettings-radar/internal/floorplan"
	"github.com/lettings-radar/internal/imagehash"
	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/match"
	"github.com/lettings-radar/internal/metrics"
)

// RunStats summarizes one pipeline run for logging, metrics and the ops
// endpoint.
type RunStats struct {
	RunID            string        `json:"run_id"`
	Input            int           `json:"input"`
	Invalid          int           `json:"invalid"`
	Duplicates       int           `json:"duplicates"`
	Blocks           int           `json:"blocks"`
	PairsCompared    int           `json:"pairs_compared"`
	Matches          int           `json:"matches"`
	Clusters         int           `json:"clusters"`
	FetchUnits       int           `json:"fetch_units"`
	FetchFailures    int           `json:"fetch_failures"`
	FallbackAttempts int           `json:"fallback_attempts"`
	FallbackRescues  int           `json:"fallback_rescues"`
	GateDropped      int           `json:"gate_dropped"`
	Output           int           `json:"output"`
	Duration         time.Duration `json:"duration"`
	StartedAt        time.Time     `json:"started_at"`
}

// Result is the outcome of one batch: the gated, enriched properties plus
// every gate drop for diagnostics.
type Result struct {
	Properties []listing.MergedProperty `json:"properties"`
	Drops      []floorplan.Drop         `json:"-"`
	Stats      RunStats                 `json:"stats"`
}

// Pipeline is a configured, reusable resolver. Construction validates the
// configuration; Resolve itself has no fatal paths.
type Pipeline struct {
	cfg      *config.Config
	log      zerolog.Logger
	builder  *cluster.Builder
	enricher *enrich.Enricher
	gate     *floorplan.Gate
	hasher   imagehash.Hasher
}

// New builds a pipeline. registry provides the per-source detail fetchers;
// hasher and loader are the image collaborators and may be nil, which
// disables image hashing and the classifier fallback respectively.
func New(cfg *config.Config, log zerolog.Logger, registry enrich.Registry,
	hasher imagehash.Hasher, loader imagehash.Loader) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := floorplan.NewClassifier(cfg.ClassifierWeights, cfg.ClassifierThreshold)
	if err != nil {
		return nil, err
	}

	scorer := match.NewScorer(cfg.MatchWeights, cfg.MatchTiers, cfg.HashDistanceMax)
	return &Pipeline{
		cfg:      cfg,
		log:      log,
		builder:  cluster.NewBuilder(scorer, cfg.EnableCrossPlatform, log),
		enricher: enrich.New(registry, loader, classifier, cfg.MaxConcurrentFetches, cfg.FetchTimeout, log),
		gate:     floorplan.NewGate(cfg.RequireFloorplan, cfg.ExemptSources, log),
		hasher:   hasher,
	}, nil
}

// Resolve runs one batch end to end. Everything inside is locally
// recoverable; cancelling ctx stops issuing new enrichment work but lets
// in-flight fetches finish on their own deadlines.
func (p *Pipeline) Resolve(ctx context.Context, batch []listing.RawListing) Result {
	started := time.Now()
	stats := RunStats{
		RunID:     uuid.NewString(),
		Input:     len(batch),
		StartedAt: started,
	}
	log := p.log.With().Str("run_id", stats.RunID).Logger()
	log.Info().Int("listings", len(batch)).Msg("resolution run started")

	valid := listing.ValidateBatch(batch, log)
	stats.Invalid = len(batch) - len(valid)

	deduped := block.Deduplicate(valid, log)
	stats.Duplicates = len(valid) - len(deduped)

	blocks := block.Partition(deduped, log)
	stats.Blocks = len(blocks)

	hashes := p.computeHashes(ctx, blocks, log)

	props, buildStats := p.builder.Build(blocks, hashes)
	stats.PairsCompared = buildStats.PairsCompared
	stats.Matches = buildStats.Matches
	stats.Clusters = buildStats.Clusters

	enriched, enrichStats := p.enricher.EnrichAll(ctx, props)
	stats.FetchUnits = enrichStats.Units
	stats.FetchFailures = enrichStats.FetchFailures
	stats.FallbackAttempts = enrichStats.FallbackAttempts
	stats.FallbackRescues = enrichStats.FallbackRescues

	kept, drops := p.gate.Apply(enriched)
	stats.GateDropped = len(drops)
	stats.Output = len(kept)
	stats.Duration = time.Since(started)

	dropReasons := make(map[string]int)
	for _, d := range drops {
		dropReasons[d.Reason]++
	}
	metrics.ObserveRun(stats.Input, stats.PairsCompared, stats.Matches, stats.Clusters,
		stats.FetchUnits, stats.FetchFailures, stats.FallbackRescues,
		stats.Invalid, stats.Duplicates, dropReasons, stats.Duration)

	log.Info().
		Int("clusters", stats.Clusters).
		Int("matches", stats.Matches).
		Int("gate_dropped", stats.GateDropped).
		Int("output", stats.Output).
		Dur("duration", stats.Duration).
		Msg("resolution run finished")

	return Result{Properties: kept, Drops: drops, Stats: stats}
}

// computeHashes hashes each listing's representative image ahead of
// matching. Only blocks with more than one member can produce comparisons,
// so singletons are skipped. Hash failures zero the image signal and nothing
// else.
func (p *Pipeline) computeHashes(ctx context.Context, blocks []block.Block, log zerolog.Logger) map[string]string {
	hashes := make(map[string]string)
	if !p.cfg.EnableImageHashing || p.hasher == nil {
		return hashes
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.MaxConcurrentFetches)

	for _, blk := range blocks {
		if len(blk.Listings) < 2 {
			continue
		}
		for _, l := range blk.Listings {
			if l.ImageURL == "" {
				continue
			}
			l := l
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
					defer func() { <-sem }()
				}

				hctx, cancel := context.WithTimeout(context.Background(), p.cfg.FetchTimeout)
				defer cancel()
				h, err := p.hasher.Hash(hctx, l.ImageURL)
				if err != nil {
					log.Debug().Err(err).Str("listing", l.Key()).Msg("image hash unavailable")
					return
				}
				mu.Lock()
				hashes[l.Key()] = h
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	return hashes
}
