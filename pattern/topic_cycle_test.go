package pattern

import (
	"testing"
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

func mustAddTopic(t *testing.T, g *kgraph.Graph, category string, validFrom time.Time, extra map[string]kgraph.Property) *kgraph.Entity {
	t.Helper()
	props := map[string]kgraph.Property{
		"category": {Key: "category", Value: category},
	}
	for k, v := range extra {
		props[k] = v
	}
	e, err := g.AddEntity("topic", props, kgraph.AddEntityOptions{Temporal: true, ValidFrom: validFrom})
	if err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	return e
}

// TestDetectTopicCycles_LengthTwo grounds scenario S1.
func TestDetectTopicCycles_LengthTwo(t *testing.T) {
	g := kgraph.New()
	now := time.Now().UTC()
	t0 := now.Add(-20 * time.Minute)

	topic1 := mustAddTopic(t, g, "crypto", t0, nil)
	topic2 := mustAddTopic(t, g, "narrative", t0.Add(5*time.Minute), nil)
	topic3 := mustAddTopic(t, g, "crypto", t0.Add(10*time.Minute), nil)

	if _, err := g.AddRelationship("topic_transition", topic1.ID, topic2.ID, nil, nil, kgraph.After); err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if _, err := g.AddRelationship("topic_transition", topic2.ID, topic3.ID, nil, nil, kgraph.After); err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}

	patterns := DetectTopicCycles(g, now, 3600*time.Second)

	var cycles []Pattern
	for _, p := range patterns {
		if p.PatternType == "topic_cycle" {
			cycles = append(cycles, p)
		}
	}
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one topic_cycle pattern, got %d: %+v", len(cycles), cycles)
	}
	p := cycles[0]
	if p.StartCategory != "crypto" {
		t.Errorf("startCategory = %q, want crypto", p.StartCategory)
	}
	if p.Length != 2 {
		t.Errorf("length = %d, want 2", p.Length)
	}
	if p.Confidence < 0.8 || p.Confidence > 1.0 {
		t.Errorf("confidence = %v, want in [0.8, 1.0]", p.Confidence)
	}

	wantCategories := map[string]bool{"crypto": true, "narrative": true}
	if len(p.Categories) != 2 {
		t.Errorf("categories = %v, want 2 unique entries", p.Categories)
	}
	for _, c := range p.Categories {
		if !wantCategories[c] {
			t.Errorf("unexpected category %q in %v", c, p.Categories)
		}
	}
}

func TestDetectTopicCycles_EmptyGraph(t *testing.T) {
	g := kgraph.New()
	patterns := DetectTopicCycles(g, time.Now().UTC(), 0)
	if len(patterns) != 0 {
		t.Errorf("expected no patterns on empty graph, got %v", patterns)
	}
}

func TestDetectTopicCycles_OutsideTimeframeExcluded(t *testing.T) {
	g := kgraph.New()
	now := time.Now().UTC()
	stale := now.Add(-2 * time.Hour)

	topic1 := mustAddTopic(t, g, "crypto", stale, nil)
	topic2 := mustAddTopic(t, g, "narrative", stale.Add(5*time.Minute), nil)
	topic3 := mustAddTopic(t, g, "crypto", stale.Add(10*time.Minute), nil)
	g.AddRelationship("topic_transition", topic1.ID, topic2.ID, nil, nil, kgraph.After)
	g.AddRelationship("topic_transition", topic2.ID, topic3.ID, nil, nil, kgraph.After)

	patterns := DetectTopicCycles(g, now, 3600*time.Second)
	if len(patterns) != 0 {
		t.Errorf("expected stale topics to be excluded, got %v", patterns)
	}
}
