package match

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/lettings-radar/internal/imagehash"
	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/normalize"
)

const (
	// maxCoordinateMeters is the great-circle distance under which two
	// geocoded points are treated as the same building.
	maxCoordinateMeters = 50.0

	// maxPriceDelta is the relative price difference still considered the
	// same asking price across portals.
	maxPriceDelta = 0.03
)

// Scorer computes the weighted evidence score between two listings. Missing
// data never errors; a signal whose inputs are absent on either side simply
// contributes zero.
type Scorer struct {
	weights         Weights
	tiers           Tiers
	hashDistanceMax int
}

// NewScorer builds a scorer from injected weights, tier boundaries and the
// perceptual-hash Hamming cutoff. The cutoff is empirically tuned, not
// derived, which is why it is a parameter rather than a constant.
func NewScorer(w Weights, t Tiers, hashDistanceMax int) *Scorer {
	return &Scorer{weights: w, tiers: t, hashDistanceMax: hashDistanceMax}
}

// Score evaluates a listing pair. hashA and hashB are the perceptual hashes
// of each listing's representative image, empty when unavailable or when
// image hashing is disabled.
//
// Differing bedroom counts are a hard gate: every signal is forced to zero
// regardless of any other shared evidence.
func (s *Scorer) Score(a, b listing.RawListing, hashA, hashB string) MatchScore {
	var sc MatchScore
	if a.Bedrooms != b.Bedrooms {
		sc.derive(s.tiers)
		return sc
	}

	if s.imageHashMatch(hashA, hashB) {
		sc.ImageHash = s.weights.ImageHash
	}
	if fullPostcodeMatch(a.Postcode, b.Postcode) {
		sc.FullPostcode = s.weights.FullPostcode
	}
	if coordinateMatch(a, b) {
		sc.Coordinates = s.weights.Coordinates
	}
	if streetMatch(a.Address, b.Address) {
		sc.StreetName = s.weights.StreetName
	}
	// The outcode signal is subsumed by a full-postcode match; it only
	// contributes when postcode precision was too coarse for the stronger
	// signal.
	if sc.FullPostcode == 0 && outcodeMatch(a.Postcode, b.Postcode) {
		sc.Outcode = s.weights.Outcode
	}
	if priceMatch(a.PricePCM, b.PricePCM) {
		sc.Price = s.weights.Price
	}

	sc.derive(s.tiers)
	return sc
}

func (s *Scorer) imageHashMatch(hashA, hashB string) bool {
	if hashA == "" || hashB == "" {
		return false
	}
	d, err := imagehash.Distance(hashA, hashB)
	if err != nil {
		return false
	}
	return d <= s.hashDistanceMax
}

func fullPostcodeMatch(a, b string) bool {
	if !normalize.IsFullPostcode(a) || !normalize.IsFullPostcode(b) {
		return false
	}
	return compactPostcode(a) == compactPostcode(b)
}

func compactPostcode(p string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p), " ", ""))
}

func coordinateMatch(a, b listing.RawListing) bool {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return false
	}
	pa := orb.Point{*a.Longitude, *a.Latitude}
	pb := orb.Point{*b.Longitude, *b.Latitude}
	return geo.DistanceHaversine(pa, pb) <= maxCoordinateMeters
}

func streetMatch(a, b string) bool {
	sa := normalize.NormalizeStreet(a)
	sb := normalize.NormalizeStreet(b)
	return sa != "" && sa == sb
}

// outcodeMatch is always true inside a block, but is scored independently so
// the matcher composes correctly when invoked outside blocking.
func outcodeMatch(a, b string) bool {
	oa := normalize.ExtractOutcode(a)
	ob := normalize.ExtractOutcode(b)
	return oa != "" && oa == ob
}

func priceMatch(a, b int) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	hi, lo := a, b
	if b > a {
		hi, lo = b, a
	}
	return float64(hi-lo)/float64(hi) <= maxPriceDelta
}
