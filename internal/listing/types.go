package listing

import (
	"fmt"
	"time"
)

// Source identifies the portal a listing was scraped from.
type Source string

const (
	SourceRightmove   Source = "rightmove"
	SourceZoopla      Source = "zoopla"
	SourceOnTheMarket Source = "onthemarket"
	SourceOpenRent    Source = "openrent"
)

// SourcePriority is the fixed order used wherever source data has to be
// reconciled deterministically (floorplan selection, image ordering).
var SourcePriority = []Source{
	SourceRightmove,
	SourceZoopla,
	SourceOnTheMarket,
	SourceOpenRent,
}

// Valid reports whether s is one of the four supported portals.
func (s Source) Valid() bool {
	switch s {
	case SourceRightmove, SourceZoopla, SourceOnTheMarket, SourceOpenRent:
		return true
	}
	return false
}

// RawListing is one scraped listing from one portal. A batch may contain the
// same real-world property several times under different sources.
type RawListing struct {
	Source    Source    `json:"source"`
	SourceID  string    `json:"source_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	PricePCM  int       `json:"price_pcm"`
	Bedrooms  int       `json:"bedrooms"`
	Address   string    `json:"address"`
	Postcode  string    `json:"postcode,omitempty"` // full, outcode-only, or empty
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
}

// Key returns the (source, source-local id) identity of the listing,
// unique within a batch.
func (l RawListing) Key() string {
	return string(l.Source) + ":" + l.SourceID
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l RawListing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ImageKind tags where an image sits in a merged property.
type ImageKind string

const (
	ImageKindGallery   ImageKind = "gallery"
	ImageKindFloorplan ImageKind = "floorplan"
)

// TaggedImage is an image URL together with the portal it came from.
type TaggedImage struct {
	URL    string    `json:"url"`
	Source Source    `json:"source"`
	Kind   ImageKind `json:"kind"`
}

// DetailPageData is the payload the detail-fetch collaborator produces for
// one (source, property) pair. Every field is independently optional;
// partial data is normal, not an error.
type DetailPageData struct {
	FloorplanURL string   `json:"floorplan_url,omitempty"`
	GalleryURLs  []string `json:"gallery_urls,omitempty"`
	Description  string   `json:"description,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// Empty reports whether the payload carries no data at all. Failed fetches
// degrade to an empty payload.
func (d DetailPageData) Empty() bool {
	return d.FloorplanURL == "" && len(d.GalleryURLs) == 0 &&
		d.Description == "" && len(d.Features) == 0
}

// MergedProperty is the canonical record for one real-world property,
// assembled from every listing in its cluster. Enrichment fields (Images,
// Floorplan, Descriptions, Features) are empty until detail enrichment runs,
// and are replaced wholesale when it does.
type MergedProperty struct {
	Canonical    RawListing        `json:"canonical"`
	Sources      []Source          `json:"sources"` // sorted, distinct
	SourceURLs   map[Source]string `json:"source_urls"`
	Images       []TaggedImage     `json:"images,omitempty"`
	Floorplan    *TaggedImage      `json:"floorplan,omitempty"`
	PriceMin     int               `json:"price_min"`
	PriceMax     int               `json:"price_max"`
	Descriptions map[Source]string `json:"descriptions,omitempty"`
	Features     []string          `json:"features,omitempty"`
}

// Description returns the longest per-source description, the one handed to
// downstream analysis. Ties break on the fixed source priority order.
func (p MergedProperty) Description() string {
	best := ""
	for _, s := range SourcePriority {
		if d, ok := p.Descriptions[s]; ok && len(d) > len(best) {
			best = d
		}
	}
	return best
}

// Check verifies the structural invariants of a merged property: at least
// one source, source set consistent with the URL map, price bounds ordered.
func (p MergedProperty) Check() error {
	if len(p.Sources) == 0 {
		return fmt.Errorf("merged property %s has no contributing sources", p.Canonical.Key())
	}
	if len(p.Sources) != len(p.SourceURLs) {
		return fmt.Errorf("merged property %s: %d sources but %d source URLs",
			p.Canonical.Key(), len(p.Sources), len(p.SourceURLs))
	}
	for _, s := range p.Sources {
		if _, ok := p.SourceURLs[s]; !ok {
			return fmt.Errorf("merged property %s: source %s missing from URL map", p.Canonical.Key(), s)
		}
	}
	if p.PriceMin > p.PriceMax {
		return fmt.Errorf("merged property %s: price min %d above max %d",
			p.Canonical.Key(), p.PriceMin, p.PriceMax)
	}
	return nil
}
