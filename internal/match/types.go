package match

// Weights holds the evidence points each signal contributes when its
// condition holds. Every individual signal is falsifiable (agents reuse
// photos, postcode precision varies, geocoding drifts), so no single signal
// carries enough weight to match on its own.
type Weights struct {
	ImageHash    int
	FullPostcode int
	Coordinates  int
	StreetName   int
	Outcode      int
	Price        int
}

// DefaultWeights returns the tuned production signal weights.
func DefaultWeights() Weights {
	return Weights{
		ImageHash:    40,
		FullPostcode: 40,
		Coordinates:  40,
		StreetName:   20,
		Outcode:      10,
		Price:        15,
	}
}

// Tiers defines the confidence tier boundaries and the corroboration
// requirements. A pair only matches at MEDIUM or better, which demands at
// least MinSignals independent non-zero signals.
type Tiers struct {
	High           int // total for HIGH
	Medium         int // total for MEDIUM; also the match threshold
	Low            int // total for LOW
	HighMinSignals int // signal count for HIGH
	MinSignals     int // signal count for MEDIUM and for a match
}

// DefaultTiers returns the production tier boundaries.
func DefaultTiers() Tiers {
	return Tiers{
		High:           80,
		Medium:         55,
		Low:            40,
		HighMinSignals: 3,
		MinSignals:     2,
	}
}

// Tier is the confidence bucket a scored pair lands in.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
	TierNone   Tier = "NONE"
)

// MatchScore is the full evidence breakdown for one listing pair. Pure
// value, no identity: per-signal contributions plus the derived totals the
// cluster builder acts on.
type MatchScore struct {
	ImageHash    int `json:"image_hash"`
	FullPostcode int `json:"full_postcode"`
	Coordinates  int `json:"coordinates"`
	StreetName   int `json:"street_name"`
	Outcode      int `json:"outcode"`
	Price        int `json:"price"`

	Total   int  `json:"total"`
	Signals int  `json:"signals"`
	Tier    Tier `json:"tier"`
	IsMatch bool `json:"is_match"`
}

func (s *MatchScore) derive(t Tiers) {
	contributions := [...]int{
		s.ImageHash, s.FullPostcode, s.Coordinates,
		s.StreetName, s.Outcode, s.Price,
	}
	s.Total = 0
	s.Signals = 0
	for _, c := range contributions {
		s.Total += c
		if c > 0 {
			s.Signals++
		}
	}

	switch {
	case s.Total >= t.High && s.Signals >= t.HighMinSignals:
		s.Tier = TierHigh
	case s.Total >= t.Medium && s.Signals >= t.MinSignals:
		s.Tier = TierMedium
	case s.Total >= t.Low:
		s.Tier = TierLow
	default:
		s.Tier = TierNone
	}
	s.IsMatch = s.Tier == TierHigh || s.Tier == TierMedium
}
