package listing

import (
	"github.com/rs/zerolog"
)

// ValidateBatch filters out structurally unusable listings before any
// matching work happens. Each rejection is logged with its reason; the
// survivors are returned in input order.
func ValidateBatch(batch []RawListing, log zerolog.Logger) []RawListing {
	valid := make([]RawListing, 0, len(batch))
	for _, l := range batch {
		if reason := validate(l); reason != "" {
			log.Warn().
				Str("source", string(l.Source)).
				Str("source_id", l.SourceID).
				Str("reason", reason).
				Msg("dropping invalid listing")
			continue
		}
		valid = append(valid, l)
	}
	return valid
}

func validate(l RawListing) string {
	switch {
	case !l.Source.Valid():
		return "unknown source"
	case l.SourceID == "":
		return "empty source id"
	case l.URL == "":
		return "empty url"
	case l.PricePCM <= 0:
		return "non-positive price"
	case l.Bedrooms < 0:
		return "negative bedroom count"
	case l.FirstSeen.IsZero():
		return "missing first-seen timestamp"
	}
	return ""
}
