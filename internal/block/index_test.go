package block

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lettings-radar/internal/listing"
)

func raw(source listing.Source, id, postcode string, bedrooms int, seen time.Time) listing.RawListing {
	return listing.RawListing{
		Source:    source,
		SourceID:  id,
		URL:       "https://example.com/" + id,
		PricePCM:  1500,
		Bedrooms:  bedrooms,
		Postcode:  postcode,
		FirstSeen: seen,
	}
}

func TestDeduplicateKeepsEarliestFirstSeen(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	batch := []listing.RawListing{
		raw(listing.SourceRightmove, "1", "E8 3PA", 2, day2),
		raw(listing.SourceZoopla, "9", "N16 0QP", 1, day1),
		raw(listing.SourceRightmove, "1", "E8 3PA", 2, day1),
	}

	got := Deduplicate(batch, zerolog.Nop())
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// The duplicate slot keeps its original position but the earlier copy.
	if got[0].Key() != "rightmove:1" || !got[0].FirstSeen.Equal(day1) {
		t.Errorf("got[0] = %s seen %v, want rightmove:1 seen %v", got[0].Key(), got[0].FirstSeen, day1)
	}
	if got[1].Key() != "zoopla:9" {
		t.Errorf("got[1] = %s, want zoopla:9", got[1].Key())
	}
}

func TestPartitionGroupsByOutcodeAndBedrooms(t *testing.T) {
	seen := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []listing.RawListing{
		raw(listing.SourceRightmove, "a", "E8 3PA", 2, seen),
		raw(listing.SourceZoopla, "b", "E8", 2, seen),
		raw(listing.SourceZoopla, "c", "E8 4AA", 3, seen), // same outcode, different bedrooms
		raw(listing.SourceOpenRent, "d", "N16 0QP", 2, seen),
	}

	blocks := Partition(batch, zerolog.Nop())
	if len(blocks) != 3 {
		t.Fatalf("len = %d, want 3", len(blocks))
	}

	want := []struct {
		key     Key
		members []string
	}{
		{Key{"E8", 2}, []string{"rightmove:a", "zoopla:b"}},
		{Key{"E8", 3}, []string{"zoopla:c"}},
		{Key{"N16", 2}, []string{"openrent:d"}},
	}
	for i, w := range want {
		if blocks[i].Key != w.key {
			t.Errorf("blocks[%d].Key = %+v, want %+v", i, blocks[i].Key, w.key)
		}
		if len(blocks[i].Listings) != len(w.members) {
			t.Fatalf("blocks[%d] has %d members, want %d", i, len(blocks[i].Listings), len(w.members))
		}
		for j, m := range w.members {
			if blocks[i].Listings[j].Key() != m {
				t.Errorf("blocks[%d].Listings[%d] = %s, want %s", i, j, blocks[i].Listings[j].Key(), m)
			}
		}
	}
}

func TestPartitionNoOutcodeBlocksAlone(t *testing.T) {
	seen := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []listing.RawListing{
		raw(listing.SourceRightmove, "a", "", 2, seen),
		raw(listing.SourceZoopla, "b", "not a postcode", 2, seen),
		raw(listing.SourceZoopla, "c", "E8 3PA", 2, seen),
	}

	blocks := Partition(batch, zerolog.Nop())
	if len(blocks) != 3 {
		t.Fatalf("len = %d, want 3", len(blocks))
	}

	var singles int
	for _, b := range blocks {
		if b.Singleton {
			singles++
			if len(b.Listings) != 1 {
				t.Errorf("singleton block has %d members", len(b.Listings))
			}
		}
	}
	if singles != 2 {
		t.Errorf("singleton blocks = %d, want 2", singles)
	}
	// Singletons sort after keyed blocks.
	if blocks[0].Singleton || blocks[0].Key.Outcode != "E8" {
		t.Errorf("blocks[0] = %+v, want the keyed E8 block first", blocks[0].Key)
	}
}

func TestPartitionIsOrderIndependent(t *testing.T) {
	seen := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []listing.RawListing{
		raw(listing.SourceRightmove, "a", "E8 3PA", 2, seen),
		raw(listing.SourceZoopla, "b", "E8", 2, seen),
		raw(listing.SourceOpenRent, "d", "N16 0QP", 2, seen),
	}
	reversed := []listing.RawListing{batch[2], batch[1], batch[0]}

	fwd := Partition(batch, zerolog.Nop())
	rev := Partition(reversed, zerolog.Nop())
	if len(fwd) != len(rev) {
		t.Fatalf("block counts differ: %d vs %d", len(fwd), len(rev))
	}
	for i := range fwd {
		if fwd[i].Key != rev[i].Key || len(fwd[i].Listings) != len(rev[i].Listings) {
			t.Errorf("blocks[%d] differ across input orders", i)
			continue
		}
		for j := range fwd[i].Listings {
			if fwd[i].Listings[j].Key() != rev[i].Listings[j].Key() {
				t.Errorf("blocks[%d].Listings[%d] differ across input orders", i, j)
			}
		}
	}
}
