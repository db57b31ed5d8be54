// Package block partitions a listing batch into small comparison groups so
// pairwise matching cost is bounded by block size, not batch size.
package block

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/listing"
	"github.com/lettings-radar/internal/normalize"
)

// Key identifies one comparison group. Bedroom count is enforced here rather
// than deferred to the matcher, keeping cross-block noise out entirely.
type Key struct {
	Outcode  string
	Bedrooms int
}

// Block is one comparison group. Singleton blocks hold listings with no
// extractable outcode; they can never cross-match and fall straight through
// to their own cluster.
type Block struct {
	Key       Key
	Singleton bool
	Listings  []listing.RawListing
}

// Deduplicate removes exact duplicates by (source, source-local id), keeping
// the earliest first-seen copy. Input order is otherwise preserved.
func Deduplicate(batch []listing.RawListing, log zerolog.Logger) []listing.RawListing {
	byKey := make(map[string]int, len(batch))
	out := make([]listing.RawListing, 0, len(batch))

	for _, l := range batch {
		i, seen := byKey[l.Key()]
		if !seen {
			byKey[l.Key()] = len(out)
			out = append(out, l)
			continue
		}
		if l.FirstSeen.Before(out[i].FirstSeen) {
			out[i] = l
		}
		log.Debug().
			Str("listing", l.Key()).
			Msg("dropping duplicate listing, keeping earliest first-seen")
	}
	return out
}

// Partition groups deduplicated listings by (outcode, bedrooms). Listings
// without an extractable outcode each become their own singleton block.
// Blocks come back in a deterministic order with members sorted by listing
// key, so downstream stages are order-independent by construction.
func Partition(batch []listing.RawListing, log zerolog.Logger) []Block {
	grouped := make(map[Key][]listing.RawListing)
	var singletons []listing.RawListing

	for _, l := range batch {
		outcode := normalize.ExtractOutcode(l.Postcode)
		if outcode == "" {
			log.Debug().
				Str("listing", l.Key()).
				Msg("no extractable outcode, listing blocks alone")
			singletons = append(singletons, l)
			continue
		}
		k := Key{Outcode: outcode, Bedrooms: l.Bedrooms}
		grouped[k] = append(grouped[k], l)
	}

	blocks := make([]Block, 0, len(grouped)+len(singletons))
	for k, members := range grouped {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Key() < members[j].Key()
		})
		blocks = append(blocks, Block{Key: k, Listings: members})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Key.Outcode != blocks[j].Key.Outcode {
			return blocks[i].Key.Outcode < blocks[j].Key.Outcode
		}
		return blocks[i].Key.Bedrooms < blocks[j].Key.Bedrooms
	})

	sort.Slice(singletons, func(i, j int) bool {
		return singletons[i].Key() < singletons[j].Key()
	})
	for _, l := range singletons {
		blocks = append(blocks, Block{
			Key:       Key{Bedrooms: l.Bedrooms},
			Singleton: true,
			Listings:  []listing.RawListing{l},
		})
	}
	return blocks
}
