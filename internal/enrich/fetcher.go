package enrich

import (
	"context"

	"github.com/lettings-radar/internal/listing"
)

// Fetcher produces the detail-page payload for one property URL on one
// portal. Implementations live with the per-source scraping code; this core
// only consumes the interface. Any error is treated identically to an
// all-empty payload.
type Fetcher interface {
	FetchDetails(ctx context.Context, url string) (listing.DetailPageData, error)
}

// Registry maps each portal to its detail fetcher. Sources without an entry
// degrade to empty payloads.
type Registry map[listing.Source]Fetcher

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (listing.DetailPageData, error)

// FetchDetails calls f.
func (f FetcherFunc) FetchDetails(ctx context.Context, url string) (listing.DetailPageData, error) {
	return f(ctx, url)
}
