package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/config"
	"github.com/lettings-radar/internal/enrich"
	"github.com/lettings-radar/internal/listing"
)

type mapFetcher map[string]listing.DetailPageData

func (f mapFetcher) FetchDetails(_ context.Context, url string) (listing.DetailPageData, error) {
	return f[url], nil
}

type fixedHasher map[string]string

func (h fixedHasher) Hash(_ context.Context, url string) (string, error) {
	return h[url], nil
}

func TestResolveEndToEnd(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	batch := []listing.RawListing{
		{
			Source: listing.SourceRightmove, SourceID: "a",
			URL: "https://rightmove.example/a", PricePCM: 2000, Bedrooms: 2,
			Address: "12 Mare Street", Postcode: "E8 3PA",
			ImageURL: "https://rightmove.example/a.jpg", FirstSeen: day1,
		},
		{
			Source: listing.SourceZoopla, SourceID: "b",
			URL: "https://zoopla.example/b", PricePCM: 2010, Bedrooms: 2,
			Address: "Flat 2, 12 Mare St", Postcode: "E8 3PA",
			ImageURL: "https://zoopla.example/b.jpg", FirstSeen: day1,
		},
		// Same flat listed again by the same portal: exact duplicate.
		{
			Source: listing.SourceRightmove, SourceID: "a",
			URL: "https://rightmove.example/a", PricePCM: 2000, Bedrooms: 2,
			Address: "12 Mare Street", Postcode: "E8 3PA",
			ImageURL: "https://rightmove.example/a.jpg", FirstSeen: day1.AddDate(0, 0, 1),
		},
		// Different property, no floorplan anywhere, non-exempt source.
		{
			Source: listing.SourceZoopla, SourceID: "c",
			URL: "https://zoopla.example/c", PricePCM: 1500, Bedrooms: 1,
			Address: "3 Lordship Road", Postcode: "N16 0QP", FirstSeen: day1,
		},
		// Structurally invalid: no price.
		{
			Source: listing.SourceZoopla, SourceID: "d",
			URL: "https://zoopla.example/d", Bedrooms: 1, FirstSeen: day1,
		},
	}

	registry := enrich.Registry{
		listing.SourceRightmove: mapFetcher{
			"https://rightmove.example/a": {
				FloorplanURL: "https://rightmove.example/plan.png",
				GalleryURLs:  []string{"https://rightmove.example/a.jpg"},
				Description:  "two bed flat on mare street",
			},
		},
		listing.SourceZoopla: mapFetcher{
			"https://zoopla.example/b": {Description: "longer two bed flat description here"},
			"https://zoopla.example/c": {Description: "one bed, no plan"},
		},
	}
	hasher := fixedHasher{
		"https://rightmove.example/a.jpg": "8f3a5c0000000000",
		"https://zoopla.example/b.jpg":    "8f3a5c0000000003",
	}

	p, err := New(config.Default(), zerolog.Nop(), registry, hasher, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := p.Resolve(context.Background(), batch)
	st := res.Stats

	if st.RunID == "" {
		t.Error("run id not assigned")
	}
	if st.Input != 5 || st.Invalid != 1 || st.Duplicates != 1 {
		t.Errorf("intake stats = %+v, want input 5, invalid 1, duplicates 1", st)
	}
	if st.Clusters != 2 {
		t.Errorf("clusters = %d, want 2", st.Clusters)
	}
	if st.Matches != 1 {
		t.Errorf("matches = %d, want 1 cross-portal match", st.Matches)
	}
	if st.GateDropped != 1 || st.Output != 1 {
		t.Errorf("gate stats = dropped %d output %d, want 1 and 1", st.GateDropped, st.Output)
	}

	if len(res.Properties) != 1 {
		t.Fatalf("properties = %d, want 1", len(res.Properties))
	}
	prop := res.Properties[0]
	if prop.Canonical.Key() != "rightmove:a" {
		t.Errorf("canonical = %s, want rightmove:a", prop.Canonical.Key())
	}
	if len(prop.Sources) != 2 {
		t.Errorf("sources = %v, want both portals", prop.Sources)
	}
	// Duplicate resolution kept the earliest sighting.
	if !prop.Canonical.FirstSeen.Equal(day1) {
		t.Errorf("first seen = %v, want the earliest copy", prop.Canonical.FirstSeen)
	}
	if prop.Floorplan == nil || prop.Floorplan.URL != "https://rightmove.example/plan.png" {
		t.Errorf("floorplan = %+v", prop.Floorplan)
	}
	if prop.Description() != "longer two bed flat description here" {
		t.Errorf("description = %q", prop.Description())
	}
	if err := prop.Check(); err != nil {
		t.Errorf("output property invalid: %v", err)
	}

	if len(res.Drops) != 1 || res.Drops[0].Property.Canonical.Key() != "zoopla:c" {
		t.Errorf("drops = %+v, want zoopla:c", res.Drops)
	}
}

// With image hashing disabled the pipeline must still resolve; the pair
// keeps enough non-image evidence to match.
func TestResolveWithoutImageHashing(t *testing.T) {
	cfg := config.Default()
	cfg.EnableImageHashing = false
	cfg.RequireFloorplan = false

	day1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []listing.RawListing{
		{
			Source: listing.SourceRightmove, SourceID: "a",
			URL: "https://rightmove.example/a", PricePCM: 2000, Bedrooms: 2,
			Postcode: "E8 3PA", FirstSeen: day1,
		},
		{
			Source: listing.SourceOpenRent, SourceID: "b",
			URL: "https://openrent.example/b", PricePCM: 2030, Bedrooms: 2,
			Postcode: "E8 3PA", FirstSeen: day1,
		},
	}

	p, err := New(cfg, zerolog.Nop(), enrich.Registry{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := p.Resolve(context.Background(), batch)

	if res.Stats.Clusters != 1 || len(res.Properties) != 1 {
		t.Fatalf("clusters = %d, want the pair merged on postcode and price", res.Stats.Clusters)
	}
	if res.Properties[0].PriceMin != 2000 || res.Properties[0].PriceMax != 2030 {
		t.Errorf("price range = [%d,%d]", res.Properties[0].PriceMin, res.Properties[0].PriceMax)
	}
}

func TestResolveEmptyBatch(t *testing.T) {
	p, err := New(config.Default(), zerolog.Nop(), enrich.Registry{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := p.Resolve(context.Background(), nil)
	if len(res.Properties) != 0 || res.Stats.Output != 0 {
		t.Errorf("empty batch produced %d properties", len(res.Properties))
	}
}
