package kgraph

import (
	"math"
	"testing"
	"time"
)

func TestAddEntity_PlainAndTemporal(t *testing.T) {
	g := New()

	plain, err := g.AddEntity("topic", map[string]Property{"label": {Key: "label", Value: "btc"}}, AddEntityOptions{})
	if err != nil {
		t.Fatalf("AddEntity plain: %v", err)
	}
	if plain.IsTimeAware() {
		t.Error("expected plain entity to not be time-aware")
	}

	temporal, err := g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: time.Now().UTC()})
	if err != nil {
		t.Fatalf("AddEntity temporal: %v", err)
	}
	if !temporal.IsTimeAware() {
		t.Error("expected temporal entity to be time-aware")
	}
}

func TestAddEntity_NaiveTimestampRejected(t *testing.T) {
	g := New()
	naive := time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	_, err := g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: naive})
	if err != ErrNaiveTimestamp {
		t.Errorf("expected ErrNaiveTimestamp, got %v", err)
	}
}

func TestAddEntity_InvalidTemporalRange(t *testing.T) {
	g := New()
	from := time.Now().UTC()
	to := from.Add(-time.Hour)
	_, err := g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: from, ValidTo: &to})
	if err != ErrInvalidTemporalRange {
		t.Errorf("expected ErrInvalidTemporalRange, got %v", err)
	}
}

func TestAddRelationship_DanglingEdgeRejected(t *testing.T) {
	g := New()
	a, _ := g.AddEntity("topic", nil, AddEntityOptions{})

	_, err := g.AddRelationship("relates_to", a.ID, "does-not-exist", nil, nil, Unknown)
	if err != ErrDanglingEdge {
		t.Errorf("expected ErrDanglingEdge for missing target, got %v", err)
	}
	_, err = g.AddRelationship("relates_to", "does-not-exist", a.ID, nil, nil, Unknown)
	if err != ErrDanglingEdge {
		t.Errorf("expected ErrDanglingEdge for missing source, got %v", err)
	}
}

func TestAddRelationship_ClampsCausalStrength(t *testing.T) {
	g := New()
	a, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	b, _ := g.AddEntity("topic", nil, AddEntityOptions{})

	over := 1.5
	r, err := g.AddRelationship("causes", a.ID, b.ID, nil, &over, After)
	if err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if *r.CausalStrength != 1.0 {
		t.Errorf("expected causal strength clamped to 1.0, got %v", *r.CausalStrength)
	}
}

func TestGetEntity_UnknownReturnsError(t *testing.T) {
	g := New()
	if _, err := g.GetEntity("missing"); err != ErrUnknownEntity {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestGetRelationship_UnknownReturnsError(t *testing.T) {
	g := New()
	if _, err := g.GetRelationship("missing"); err != ErrUnknownRelationship {
		t.Errorf("expected ErrUnknownRelationship, got %v", err)
	}
}

func TestUpdateProperty_PreviousVersionsMonotonic(t *testing.T) {
	g := New()
	e, _ := g.AddEntity("claim", map[string]Property{
		"confidence": {Key: "confidence", Value: 0.5},
	}, AddEntityOptions{Temporal: true, ValidFrom: time.Now().UTC()})

	if err := g.UpdateProperty(e.ID, "confidence", 0.7, 0.9, "detector"); err != nil {
		t.Fatalf("UpdateProperty: %v", err)
	}
	if err := g.UpdateProperty(e.ID, "confidence", 0.8, 0.95, "detector"); err != nil {
		t.Fatalf("UpdateProperty: %v", err)
	}

	got, err := g.GetEntity(e.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if len(got.Temporal.PreviousVersions) != 2 {
		t.Fatalf("expected 2 archived versions, got %d", len(got.Temporal.PreviousVersions))
	}
	if got.Temporal.PreviousVersions[0].Value != 0.5 {
		t.Errorf("expected first archived value 0.5, got %v", got.Temporal.PreviousVersions[0].Value)
	}
	if got.Temporal.PreviousVersions[1].Value != 0.7 {
		t.Errorf("expected second archived value 0.7, got %v", got.Temporal.PreviousVersions[1].Value)
	}
	if got.Properties["confidence"].Value != 0.8 {
		t.Errorf("expected current value 0.8, got %v", got.Properties["confidence"].Value)
	}
}

func TestSmooth_ClampedAndWeighted(t *testing.T) {
	if v := Smooth(0.5, 1.0); math.Abs(v-0.6) > 1e-9 {
		t.Errorf("Smooth(0.5, 1.0) = %v, want 0.6", v)
	}
	if v := Smooth(0.0, -5.0); v != 0.0 {
		t.Errorf("Smooth below zero should clamp to 0, got %v", v)
	}
	if v := Smooth(1.0, 5.0); v != 1.0 {
		t.Errorf("Smooth above one should clamp to 1, got %v", v)
	}
}

func TestFindPaths_SimpleChain(t *testing.T) {
	g := New()
	a, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	b, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	c, _ := g.AddEntity("topic", nil, AddEntityOptions{})

	if _, err := g.AddRelationship("relates_to", a.ID, b.ID, nil, nil, Unknown); err != nil {
		t.Fatalf("AddRelationship a->b: %v", err)
	}
	if _, err := g.AddRelationship("relates_to", b.ID, c.ID, nil, nil, Unknown); err != nil {
		t.Fatalf("AddRelationship b->c: %v", err)
	}

	paths := g.FindPaths(a.ID, c.ID, 5)
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d: %v", len(paths), paths)
	}
	want := []string{a.ID, b.ID, c.ID}
	for i, id := range want {
		if paths[0][i] != id {
			t.Errorf("path[%d] = %s, want %s", i, paths[0][i], id)
		}
	}
}

func TestFindPaths_RespectsMaxDepth(t *testing.T) {
	g := New()
	a, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	b, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	c, _ := g.AddEntity("topic", nil, AddEntityOptions{})
	g.AddRelationship("relates_to", a.ID, b.ID, nil, nil, Unknown)
	g.AddRelationship("relates_to", b.ID, c.ID, nil, nil, Unknown)

	if paths := g.FindPaths(a.ID, c.ID, 1); len(paths) != 0 {
		t.Errorf("expected no paths within depth 1, got %v", paths)
	}
}

func TestGetCausalChain_FiltersByConfidence(t *testing.T) {
	g := New()
	a, _ := g.AddEntity("market_event", nil, AddEntityOptions{})
	b, _ := g.AddEntity("social_event", nil, AddEntityOptions{})
	c, _ := g.AddEntity("news_event", nil, AddEntityOptions{})

	weak := 0.2
	strong := 0.9
	g.AddRelationship("causes", a.ID, b.ID, nil, &weak, After)
	g.AddRelationship("causes", a.ID, c.ID, nil, &strong, After)

	chains := g.GetCausalChain(a.ID, 3, 0.5)
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain above confidence threshold, got %d: %v", len(chains), chains)
	}
	if chains[0].EntityIDs[len(chains[0].EntityIDs)-1] != c.ID {
		t.Errorf("expected chain to end at strong target, got %v", chains[0].EntityIDs)
	}
}

func TestGetEntities_TemporalFilters(t *testing.T) {
	g := New()
	early := time.Now().UTC().Add(-48 * time.Hour)
	late := time.Now().UTC().Add(-1 * time.Hour)

	_, _ = g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: early})
	_, _ = g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: late})

	threshold := time.Now().UTC().Add(-24 * time.Hour)
	recent := g.GetEntities(EntityFilter{Type: "claim", ValidFromAfter: &threshold})
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent entity, got %d", len(recent))
	}
	if !recent[0].Temporal.ValidFrom.Equal(late) {
		t.Errorf("expected the late entity, got validFrom=%v", recent[0].Temporal.ValidFrom)
	}
}

func TestQueryEntities_AsOfTime(t *testing.T) {
	g := New()
	from := time.Now().UTC().Add(-2 * time.Hour)
	to := time.Now().UTC().Add(-1 * time.Hour)
	e, _ := g.AddEntity("claim", nil, AddEntityOptions{Temporal: true, ValidFrom: from, ValidTo: &to})

	stillValid := from.Add(30 * time.Minute)
	afterExpiry := to.Add(30 * time.Minute)

	valid := g.QueryEntities(EntityFilter{Type: "claim", TimestampValidAt: &stillValid})
	if len(valid) != 1 || valid[0].ID != e.ID {
		t.Errorf("expected entity to be valid at %v, got %v", stillValid, valid)
	}

	expired := g.QueryEntities(EntityFilter{Type: "claim", TimestampValidAt: &afterExpiry})
	if len(expired) != 0 {
		t.Errorf("expected no entities valid at %v, got %v", afterExpiry, expired)
	}
}

func TestEmptyGraph_BoundaryCases(t *testing.T) {
	g := New()
	if got := g.GetEntitiesByType("topic"); len(got) != 0 {
		t.Errorf("expected empty result on empty graph, got %v", got)
	}
	if paths := g.FindPaths("a", "b", 5); len(paths) != 0 {
		t.Errorf("expected no paths on empty graph, got %v", paths)
	}
	if chains := g.GetCausalChain("a", 5, 0.5); len(chains) != 0 {
		t.Errorf("expected no chains on empty graph, got %v", chains)
	}
}
