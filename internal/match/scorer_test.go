package match

import (
	"testing"
	"time"

	"github.com/lettings-radar/internal/listing"
)

func testListing(source listing.Source, id string) listing.RawListing {
	return listing.RawListing{
		Source:    source,
		SourceID:  id,
		URL:       "https://example.com/" + id,
		PricePCM:  2000,
		Bedrooms:  2,
		FirstSeen: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func newTestScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultTiers(), 8)
}

func TestBedroomMismatchIsHardGate(t *testing.T) {
	s := newTestScorer()

	a := testListing(listing.SourceRightmove, "1")
	b := testListing(listing.SourceZoopla, "2")
	a.Postcode, b.Postcode = "E8 3PA", "E8 3PA"
	a.Address, b.Address = "12 Mare Street", "12 Mare Street"
	a.Latitude, a.Longitude = coords(51.5450, -0.0553)
	b.Latitude, b.Longitude = coords(51.5450, -0.0553)
	b.Bedrooms = 3

	sc := s.Score(a, b, "00ff00ff00ff00ff", "00ff00ff00ff00ff")
	if sc.Total != 0 {
		t.Errorf("total = %d, want 0 despite shared evidence", sc.Total)
	}
	if sc.IsMatch {
		t.Error("is_match = true for differing bedroom counts")
	}
	if sc.Tier != TierNone {
		t.Errorf("tier = %s, want NONE", sc.Tier)
	}
}

func TestScoreTiers(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name        string
		setup       func(a, b *listing.RawListing) (hashA, hashB string)
		wantTotal   int
		wantSignals int
		wantTier    Tier
		wantMatch   bool
	}{
		{
			name: "full postcode plus price is MEDIUM",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8 3PA", "e8 3pa"
				return "", ""
			},
			wantTotal:   55,
			wantSignals: 2,
			wantTier:    TierMedium,
			wantMatch:   true,
		},
		{
			name: "image hash plus outcode stays LOW",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8", "E8"
				b.PricePCM = 3000 // kill the price signal
				return "0000000000000000", "00000000000000ff"
			},
			wantTotal:   50,
			wantSignals: 2,
			wantTier:    TierLow,
			wantMatch:   false,
		},
		{
			name: "image hash plus outcode plus price is MEDIUM",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8", "E8"
				return "0000000000000000", "00000000000000ff"
			},
			wantTotal:   65,
			wantSignals: 3,
			wantTier:    TierMedium,
			wantMatch:   true,
		},
		{
			name: "full postcode plus coordinates plus price is HIGH",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8 3PA", "E8 3PA"
				a.Latitude, a.Longitude = coords(51.5450, -0.0553)
				b.Latitude, b.Longitude = coords(51.5451, -0.0553) // ~11m away
				return "", ""
			},
			wantTotal:   95,
			wantSignals: 3,
			wantTier:    TierHigh,
			wantMatch:   true,
		},
		{
			name: "a single maximal signal never matches",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8 3PA", "E8 3PA"
				b.PricePCM = 3000
				return "", ""
			},
			wantTotal:   40,
			wantSignals: 1,
			wantTier:    TierLow,
			wantMatch:   false,
		},
		{
			name: "hash distance beyond cutoff contributes nothing",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8", "E8"
				b.PricePCM = 3000
				return "0000000000000000", "00000000000001ff" // distance 9
			},
			wantTotal:   10,
			wantSignals: 1,
			wantTier:    TierNone,
			wantMatch:   false,
		},
		{
			name: "street name corroborates outcode and price",
			setup: func(a, b *listing.RawListing) (string, string) {
				a.Postcode, b.Postcode = "E8", "E8"
				a.Address = "12 Mare Street, Hackney"
				b.Address = "Flat 2, 12 Mare St, London"
				return "", ""
			},
			wantTotal:   45,
			wantSignals: 3,
			wantTier:    TierLow,
			wantMatch:   false,
		},
		{
			name: "no shared evidence at all",
			setup: func(a, b *listing.RawListing) (string, string) {
				b.PricePCM = 3000
				return "", ""
			},
			wantTotal:   0,
			wantSignals: 0,
			wantTier:    TierNone,
			wantMatch:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testListing(listing.SourceRightmove, "1")
			b := testListing(listing.SourceZoopla, "2")
			hashA, hashB := tt.setup(&a, &b)

			sc := s.Score(a, b, hashA, hashB)
			if sc.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", sc.Total, tt.wantTotal)
			}
			if sc.Signals != tt.wantSignals {
				t.Errorf("signals = %d, want %d", sc.Signals, tt.wantSignals)
			}
			if sc.Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", sc.Tier, tt.wantTier)
			}
			if sc.IsMatch != tt.wantMatch {
				t.Errorf("is_match = %v, want %v", sc.IsMatch, tt.wantMatch)
			}
		})
	}
}

func TestScoreIsSymmetric(t *testing.T) {
	s := newTestScorer()

	a := testListing(listing.SourceRightmove, "1")
	b := testListing(listing.SourceOpenRent, "2")
	a.Postcode, b.Postcode = "E8 3PA", "E8 3PA"
	a.PricePCM, b.PricePCM = 2000, 2050

	ab := s.Score(a, b, "", "")
	ba := s.Score(b, a, "", "")
	if ab != ba {
		t.Errorf("Score(a,b) = %+v, Score(b,a) = %+v, want identical", ab, ba)
	}
}

func TestPriceRelativeDifference(t *testing.T) {
	tests := []struct {
		a, b int
		want bool
	}{
		{2000, 2000, true},
		{2000, 2060, true},  // 2.9% of the higher price
		{2000, 2061, true},  // 2.96%
		{2000, 2100, false}, // 4.8%
		{2000, 0, false},
	}

	for _, tt := range tests {
		if got := priceMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("priceMatch(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
