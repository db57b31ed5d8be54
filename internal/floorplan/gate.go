package floorplan

import (
	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/listing"
)

// Pass reasons and the drop reason recorded by the gate. Every decision is
// attributable; nothing is dropped silently.
const (
	PassHasFloorplan = "has_floorplan"
	PassExemptSource = "exempt_source"
	DropNoFloorplan  = "missing_floorplan"
)

// Drop records one gated-out property and why it was dropped.
type Drop struct {
	Property listing.MergedProperty
	Reason   string
}

// Gate filters enriched properties on floorplan presence. Sources in the
// exempt set categorically never expose floorplan data, so absence carries
// no signal for properties contributed solely by them.
type Gate struct {
	require bool
	exempt  map[listing.Source]bool
	log     zerolog.Logger
}

// NewGate creates a gate. With require false the gate passes everything.
func NewGate(require bool, exempt []listing.Source, log zerolog.Logger) *Gate {
	m := make(map[listing.Source]bool, len(exempt))
	for _, s := range exempt {
		m[s] = true
	}
	return &Gate{require: require, exempt: m, log: log}
}

// Apply returns the properties that pass, in input order, plus a drop record
// for each one that does not. The gate only reads; properties are never
// mutated.
func (g *Gate) Apply(props []listing.MergedProperty) ([]listing.MergedProperty, []Drop) {
	if !g.require {
		return props, nil
	}

	kept := make([]listing.MergedProperty, 0, len(props))
	var drops []Drop
	for _, p := range props {
		switch {
		case p.Floorplan != nil:
			g.log.Debug().
				Str("property", p.Canonical.Key()).
				Str("reason", PassHasFloorplan).
				Msg("gate pass")
			kept = append(kept, p)
		case g.allExempt(p.Sources):
			g.log.Debug().
				Str("property", p.Canonical.Key()).
				Str("reason", PassExemptSource).
				Msg("gate pass")
			kept = append(kept, p)
		default:
			g.log.Info().
				Str("property", p.Canonical.Key()).
				Str("reason", DropNoFloorplan).
				Msg("gate drop")
			drops = append(drops, Drop{Property: p, Reason: DropNoFloorplan})
		}
	}
	return kept, drops
}

// allExempt reports whether the property's contributing source set is a
// subset of the exempt set.
func (g *Gate) allExempt(sources []listing.Source) bool {
	if len(sources) == 0 {
		return false
	}
	for _, s := range sources {
		if !g.exempt[s] {
			return false
		}
	}
	return true
}
