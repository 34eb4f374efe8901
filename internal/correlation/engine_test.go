package correlation

import (
	"testing"

	"signal-lab/internal/domain"
)

// dayStart is a midnight-aligned timestamp so offsets below stay within one
// correlation day bucket.
const dayStart int64 = 1704067200000

func corrSignal(id string, firstMs int64, entities []domain.Entity) domain.Signal {
	return domain.Signal{
		SignalID:   id,
		Type:       domain.SignalEmergingTechnology,
		Strength:   0.6,
		Confidence: 0.7,
		Sources: []domain.SignalSource{{
			DetectorID:   "detector-" + id,
			DetectorType: "statistical",
			Credibility:  0.8,
			TimestampMs:  firstMs,
		}},
		FirstDetectedMs: firstMs,
		LastUpdatedMs:   firstMs + 1000,
		Metadata: domain.SignalMetadata{
			Keywords:  []string{"automation", "robotics"},
			Entities:  entities,
			Geography: []string{"EU"},
			Volume:    100,
		},
	}
}

func TestCorrelate_MergesHighlySimilar(t *testing.T) {
	entities := []domain.Entity{{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}}
	a := corrSignal("aaa", dayStart, entities)
	b := corrSignal("bbb", dayStart+2*3600000, entities)

	c := NewCorrelator(Config{})
	result := c.Correlate([]domain.Signal{a, b})

	if len(result) != 1 {
		t.Fatalf("got %d survivors, want 1 merged", len(result))
	}
	got := result[0]
	if got.SignalID != "aaa" {
		t.Errorf("survivor = %s, want the earlier member", got.SignalID)
	}
	if len(got.Sources) != 2 {
		t.Errorf("sources = %d, want both members", len(got.Sources))
	}
	if got.Metadata.Volume != 200 {
		t.Errorf("volume = %f, want summed 200", got.Metadata.Volume)
	}
	if len(got.Context.RelatedSignalIDs) != 0 {
		t.Errorf("merged survivor has related links: %v", got.Context.RelatedSignalIDs)
	}
}

func TestCorrelate_LinksModeratelySimilar(t *testing.T) {
	// Disjoint entities keep the similarity below the merge threshold but
	// above the relate threshold.
	a := corrSignal("aaa", dayStart, []domain.Entity{{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}})
	b := corrSignal("bbb", dayStart+2*3600000, []domain.Entity{{Type: domain.EntityTechnology, Name: "drones", Relevance: 0.8}})

	c := NewCorrelator(Config{})
	result := c.Correlate([]domain.Signal{a, b})

	if len(result) != 2 {
		t.Fatalf("got %d survivors, want 2 unmerged", len(result))
	}
	if len(result[0].Context.RelatedSignalIDs) != 1 || result[0].Context.RelatedSignalIDs[0] != "bbb" {
		t.Errorf("aaa related = %v, want [bbb]", result[0].Context.RelatedSignalIDs)
	}
	if len(result[1].Context.RelatedSignalIDs) != 1 || result[1].Context.RelatedSignalIDs[0] != "aaa" {
		t.Errorf("bbb related = %v, want [aaa]", result[1].Context.RelatedSignalIDs)
	}
}

func TestCorrelate_MergesTransitively(t *testing.T) {
	e1 := domain.Entity{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}
	e2 := domain.Entity{Type: domain.EntityTechnology, Name: "drones", Relevance: 0.8}

	// a~b and b~c cross the merge threshold; a~c alone does not.
	a := corrSignal("aaa", dayStart, []domain.Entity{e1})
	b := corrSignal("bbb", dayStart+3600000, []domain.Entity{e1, e2})
	c := corrSignal("ccc", dayStart+2*3600000, []domain.Entity{e2})

	result := NewCorrelator(Config{}).Correlate([]domain.Signal{a, b, c})

	if len(result) != 1 {
		t.Fatalf("got %d survivors, want 1 transitively merged", len(result))
	}
	if len(result[0].Metadata.Entities) != 2 {
		t.Errorf("entities = %d, want union of both", len(result[0].Metadata.Entities))
	}
	if len(result[0].Sources) != 3 {
		t.Errorf("sources = %d, want all three members", len(result[0].Sources))
	}
}

func TestCorrelate_DifferentTypesStaySeparate(t *testing.T) {
	entities := []domain.Entity{{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}}
	a := corrSignal("aaa", dayStart, entities)
	b := corrSignal("bbb", dayStart+3600000, entities)
	b.Type = domain.SignalMarketShift

	result := NewCorrelator(Config{}).Correlate([]domain.Signal{a, b})

	if len(result) != 2 {
		t.Fatalf("got %d survivors, want 2 (different types)", len(result))
	}
	for _, s := range result {
		if len(s.Context.RelatedSignalIDs) != 0 {
			t.Errorf("signal %s linked across types: %v", s.SignalID, s.Context.RelatedSignalIDs)
		}
	}
}

func TestCorrelate_DifferentDaysStaySeparate(t *testing.T) {
	entities := []domain.Entity{{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}}
	a := corrSignal("aaa", dayStart, entities)
	b := corrSignal("bbb", dayStart+DayMs, entities)

	result := NewCorrelator(Config{}).Correlate([]domain.Signal{a, b})
	if len(result) != 2 {
		t.Fatalf("got %d survivors, want 2 (different day buckets)", len(result))
	}
}

func TestCorrelate_CanonicalOutputOrder(t *testing.T) {
	// Dissimilar signals across types and days, fed out of order.
	a := corrSignal("zzz", dayStart+DayMs, nil)
	a.Metadata.Keywords = []string{"one"}
	b := corrSignal("aaa", dayStart, nil)
	b.Metadata.Keywords = []string{"two"}
	b.Type = domain.SignalMarketShift
	c := corrSignal("mmm", dayStart, nil)
	c.Metadata.Keywords = []string{"three"}
	c.Type = domain.SignalGeopolitical

	result := NewCorrelator(Config{}).Correlate([]domain.Signal{a, b, c})

	if len(result) != 3 {
		t.Fatalf("got %d survivors, want 3", len(result))
	}
	want := []string{"aaa", "mmm", "zzz"}
	for i, id := range want {
		if result[i].SignalID != id {
			t.Errorf("result[%d] = %s, want %s", i, result[i].SignalID, id)
		}
	}
}

func TestCorrelate_OrderIndependentSurvivor(t *testing.T) {
	entities := []domain.Entity{{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8}}
	a := corrSignal("aaa", dayStart, entities)
	b := corrSignal("bbb", dayStart+3600000, entities)
	c := corrSignal("ccc", dayStart+2*3600000, entities)

	forward := NewCorrelator(Config{}).Correlate([]domain.Signal{a, b, c})
	backward := NewCorrelator(Config{}).Correlate([]domain.Signal{c, b, a})

	if len(forward) != 1 || len(backward) != 1 {
		t.Fatalf("got %d and %d survivors, want 1 each", len(forward), len(backward))
	}
	if forward[0].SignalID != backward[0].SignalID {
		t.Errorf("survivor depends on input order: %s vs %s", forward[0].SignalID, backward[0].SignalID)
	}
	if forward[0].Confidence != backward[0].Confidence || forward[0].Strength != backward[0].Strength {
		t.Error("aggregates depend on input order")
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(1, 2)

	if uf.find(0) != uf.find(2) {
		t.Error("transitive union not connected")
	}
	if uf.find(3) == uf.find(0) {
		t.Error("unrelated element joined a component")
	}
	if uf.find(4) != 4 {
		t.Error("untouched element lost its own root")
	}
}
