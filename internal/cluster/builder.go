// Package cluster unions matched listing pairs into property clusters and
// builds one canonical merged record per cluster.
package cluster

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/block"
	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/match"
	"github.com/lettings-radar/internal/normalize"
)

// Builder evaluates every pair within a block and reads connected components
// off as property clusters.
type Builder struct {
	scorer        *match.Scorer
	crossPlatform bool
	log           zerolog.Logger
}

// Stats counts the matching work a build performed.
type Stats struct {
	PairsCompared int
	Matches       int
	Clusters      int
}

// NewBuilder creates a cluster builder. When crossPlatform is false matching
// is skipped entirely and every listing becomes its own property.
func NewBuilder(scorer *match.Scorer, crossPlatform bool, log zerolog.Logger) *Builder {
	return &Builder{scorer: scorer, crossPlatform: crossPlatform, log: log}
}

// Build clusters every block and returns merged properties with empty
// enrichment fields, sorted by canonical listing key. hashes maps listing
// key to the perceptual hash of its representative image; absent entries
// simply zero the image signal.
func (b *Builder) Build(blocks []block.Block, hashes map[string]string) ([]listing.MergedProperty, Stats) {
	var stats Stats
	var props []listing.MergedProperty

	for _, blk := range blocks {
		for _, members := range b.clusterBlock(blk, hashes, &stats) {
			props = append(props, merge(members))
		}
	}

	sort.Slice(props, func(i, j int) bool {
		return props[i].Canonical.Key() < props[j].Canonical.Key()
	})
	stats.Clusters = len(props)
	return props, stats
}

func (b *Builder) clusterBlock(blk block.Block, hashes map[string]string, stats *Stats) [][]listing.RawListing {
	n := len(blk.Listings)
	if n == 1 || !b.crossPlatform {
		clusters := make([][]listing.RawListing, n)
		for i, l := range blk.Listings {
			clusters[i] = []listing.RawListing{l}
		}
		return clusters
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, c := blk.Listings[i], blk.Listings[j]
			score := b.scorer.Score(a, c, hashes[a.Key()], hashes[c.Key()])
			stats.PairsCompared++
			if score.IsMatch {
				stats.Matches++
				b.log.Debug().
					Str("a", a.Key()).
					Str("b", c.Key()).
					Int("total", score.Total).
					Int("signals", score.Signals).
					Str("tier", string(score.Tier)).
					Msg("listing pair matched")
				uf.union(i, j)
			}
		}
	}

	byRoot := make(map[int][]listing.RawListing)
	for i, l := range blk.Listings {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], l)
	}

	// Deterministic cluster order regardless of union sequence.
	roots := make([]int, 0, len(byRoot))
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	clusters := make([][]listing.RawListing, 0, len(roots))
	for _, r := range roots {
		clusters = append(clusters, byRoot[r])
	}
	return clusters
}

// merge builds the canonical record for one cluster. Enrichment fields stay
// empty here; detail enrichment replaces them in one shot later.
func merge(members []listing.RawListing) listing.MergedProperty {
	sort.Slice(members, func(i, j int) bool {
		return members[i].Key() < members[j].Key()
	})

	canonical := members[0]
	for _, m := range members[1:] {
		if canonicalBetter(m, canonical) {
			canonical = m
		}
	}

	sourceSet := make(map[listing.Source]bool)
	urls := make(map[listing.Source]string)
	priceMin, priceMax := canonical.PricePCM, canonical.PricePCM
	for _, m := range members {
		if !sourceSet[m.Source] {
			sourceSet[m.Source] = true
			urls[m.Source] = m.URL
		}
		if m.PricePCM < priceMin {
			priceMin = m.PricePCM
		}
		if m.PricePCM > priceMax {
			priceMax = m.PricePCM
		}
	}

	sources := make([]listing.Source, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	return listing.MergedProperty{
		Canonical:  canonical,
		Sources:    sources,
		SourceURLs: urls,
		PriceMin:   priceMin,
		PriceMax:   priceMax,
	}
}

// canonicalBetter implements the deterministic representative tie-break:
// full postcode beats partial, then earliest first-seen, then lexicographic
// (source, source-local id). The same cluster always yields the same
// canonical listing regardless of evaluation order.
func canonicalBetter(a, b listing.RawListing) bool {
	af, bf := normalize.IsFullPostcode(a.Postcode), normalize.IsFullPostcode(b.Postcode)
	if af != bf {
		return af
	}
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.Before(b.FirstSeen)
	}
	return a.Key() < b.Key()
}
