// Package enrich populates merged properties with detail-page data fetched
// concurrently per (property, source), reconciling images, floorplans and
// descriptions across portals.
package enrich

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/floorplan"
	"github.com/lettings-radar/internal/imagehash"
	"github.com/lettings-radar/internal/listing"
)

// Stats counts enrichment work for one batch.
type Stats struct {
	Units            int // (property, source) fetch units issued
	FetchFailures    int // units degraded to an empty payload
	FallbackAttempts int // properties that needed the classifier fallback
	FallbackRescues  int // floorplans found by the classifier
}

// Enricher runs detail enrichment over a batch. Concurrency is bounded by a
// single semaphore shared across the entire batch, not per property, so
// in-flight requests never exceed the cap and no property starves another.
type Enricher struct {
	registry   Registry
	loader     imagehash.Loader
	classifier *floorplan.Classifier
	sem        chan struct{}
	timeout    time.Duration
	log        zerolog.Logger
}

// New creates an enricher. loader and classifier may be nil, which disables
// the floorplan classifier fallback.
func New(registry Registry, loader imagehash.Loader, classifier *floorplan.Classifier,
	maxConcurrent int, timeout time.Duration, log zerolog.Logger) *Enricher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Enricher{
		registry:   registry,
		loader:     loader,
		classifier: classifier,
		sem:        make(chan struct{}, maxConcurrent),
		timeout:    timeout,
		log:        log,
	}
}

// EnrichAll fetches every (property, source) unit and returns new property
// values with enrichment fields replaced, in input order. Re-running against
// identical fetch results reproduces identical output.
//
// Cancelling ctx stops issuing new units; units already in flight complete
// or time out on their own per-unit deadline, so no property is ever left
// half-written.
func (e *Enricher) EnrichAll(ctx context.Context, props []listing.MergedProperty) ([]listing.MergedProperty, Stats) {
	var stats Stats
	var mu sync.Mutex
	payloads := make([]map[listing.Source]listing.DetailPageData, len(props))
	for i := range payloads {
		payloads[i] = make(map[listing.Source]listing.DetailPageData, len(props[i].Sources))
	}

	var wg sync.WaitGroup
	for i := range props {
		for _, src := range props[i].Sources {
			i, src := i, src
			url := props[i].SourceURLs[src]
			stats.Units++
			wg.Add(1)
			go func() {
				defer wg.Done()

				var data listing.DetailPageData
				select {
				case <-ctx.Done():
					// Batch aborted: don't issue the fetch, degrade to empty.
				case e.sem <- struct{}{}:
					defer func() { <-e.sem }()
					if ctx.Err() != nil {
						break
					}
					var ok bool
					data, ok = e.fetchUnit(src, url)
					if !ok {
						mu.Lock()
						stats.FetchFailures++
						mu.Unlock()
					}
				}

				mu.Lock()
				payloads[i][src] = data
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	out := make([]listing.MergedProperty, len(props))
	for i := range props {
		out[i] = e.aggregate(props[i], payloads[i], &stats)
	}
	return out, stats
}

// fetchUnit runs one (source, url) fetch under its own timeout, detached
// from the batch context so an abort never kills a request mid-flight.
func (e *Enricher) fetchUnit(src listing.Source, url string) (listing.DetailPageData, bool) {
	f, ok := e.registry[src]
	if !ok {
		e.log.Debug().Str("source", string(src)).Msg("no detail fetcher registered")
		return listing.DetailPageData{}, true
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	data, err := f.FetchDetails(ctx, url)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("source", string(src)).
			Str("url", url).
			Msg("detail fetch failed, degrading to empty payload")
		return listing.DetailPageData{}, false
	}
	return data, true
}

// aggregate builds the enriched property from per-source payloads. Pure with
// respect to its inputs apart from the classifier fallback image loads.
func (e *Enricher) aggregate(p listing.MergedProperty, payloads map[listing.Source]listing.DetailPageData, stats *Stats) listing.MergedProperty {
	out := p
	out.Images = nil
	out.Floorplan = nil
	out.Descriptions = make(map[listing.Source]string)
	out.Features = nil

	longestFeatures := 0
	for _, src := range orderedSources(p.Sources) {
		data := payloads[src]

		for _, u := range data.GalleryURLs {
			out.Images = append(out.Images, listing.TaggedImage{
				URL:    u,
				Source: src,
				Kind:   listing.ImageKindGallery,
			})
		}

		// First raster floorplan in source priority order wins outright.
		if out.Floorplan == nil && data.FloorplanURL != "" && isRasterImageURL(data.FloorplanURL) {
			out.Floorplan = &listing.TaggedImage{
				URL:    data.FloorplanURL,
				Source: src,
				Kind:   listing.ImageKindFloorplan,
			}
		}

		if data.Description != "" {
			out.Descriptions[src] = data.Description
		}
		if len(data.Features) > longestFeatures {
			longestFeatures = len(data.Features)
			out.Features = append([]string(nil), data.Features...)
		}
	}

	if out.Floorplan == nil {
		e.rescueFloorplan(&out, stats)
	}
	return out
}

// rescueFloorplan runs the pixel-statistics classifier over the property's
// cached gallery images when structural extraction found nothing.
func (e *Enricher) rescueFloorplan(p *listing.MergedProperty, stats *Stats) {
	if e.classifier == nil || e.loader == nil || len(p.Images) == 0 {
		return
	}
	stats.FallbackAttempts++

	for _, img := range p.Images {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		decoded, err := e.loader.Load(ctx, img.URL)
		cancel()
		if err != nil {
			e.log.Debug().Err(err).Str("url", img.URL).Msg("fallback image load failed")
			continue
		}

		c := e.classifier.Classify(decoded)
		if c.IsFloorplan {
			e.log.Info().
				Str("property", p.Canonical.Key()).
				Str("url", img.URL).
				Float64("score", c.Score).
				Msg("classifier rescued a floorplan from the gallery")
			p.Floorplan = &listing.TaggedImage{
				URL:    img.URL,
				Source: img.Source,
				Kind:   listing.ImageKindFloorplan,
			}
			stats.FallbackRescues++
			return
		}
	}
}

// orderedSources filters the fixed source priority order down to the
// property's contributing sources, keeping reconciliation deterministic.
func orderedSources(sources []listing.Source) []listing.Source {
	present := make(map[listing.Source]bool, len(sources))
	for _, s := range sources {
		present[s] = true
	}
	out := make([]listing.Source, 0, len(sources))
	for _, s := range listing.SourcePriority {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}

// Document formats never qualify as a floorplan image; the downstream vision
// step needs raster pixels.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".svg": true,
	".htm": true, ".html": true,
}

func isRasterImageURL(u string) bool {
	clean := u
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := strings.ToLower(path.Ext(clean))
	return !documentExtensions[ext]
}
