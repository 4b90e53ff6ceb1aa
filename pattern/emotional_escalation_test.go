package pattern

import (
	"testing"
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

func sentimentProps(fear, anger, intensity float64) map[string]kgraph.Property {
	return map[string]kgraph.Property{
		"sentiment": {Key: "sentiment", Value: map[string]interface{}{
			"fear": fear, "anger": anger, "intensity": intensity,
		}},
	}
}

// TestDetectEmotionalEscalation grounds scenario S4.
func TestDetectEmotionalEscalation(t *testing.T) {
	g := kgraph.New()
	now := time.Now().UTC()
	t0 := now.Add(-40 * time.Minute)

	fears := []float64{0.3, 0.45, 0.6, 0.75}
	angers := []float64{0.2, 0.4, 0.6, 0.8}
	intensities := []float64{0.4, 0.5, 0.6, 0.7}
	for i := range fears {
		mustAddTopic(t, g, "crypto", t0.Add(time.Duration(i)*10*time.Minute), sentimentProps(fears[i], angers[i], intensities[i]))
	}

	patterns := DetectEmotionalEscalation(g, now, 3600*time.Second)
	if len(patterns) != 1 {
		t.Fatalf("expected exactly one pattern, got %d: %+v", len(patterns), patterns)
	}
	p := patterns[0]
	if p.PatternType != "emotional_manipulation" {
		t.Errorf("patternType = %q, want emotional_manipulation", p.PatternType)
	}
	if p.Confidence <= 0.7 {
		t.Errorf("confidence = %v, want > 0.7", p.Confidence)
	}
	if p.FearLevel <= 0.6 {
		t.Errorf("fearLevel = %v, want > 0.6", p.FearLevel)
	}
}

func TestDetectEmotionalEscalation_RequiresThreeSamples(t *testing.T) {
	g := kgraph.New()
	now := time.Now().UTC()
	mustAddTopic(t, g, "crypto", now, sentimentProps(0.1, 0.1, 0.1))
	mustAddTopic(t, g, "crypto", now, sentimentProps(0.9, 0.9, 0.9))

	patterns := DetectEmotionalEscalation(g, now, 3600*time.Second)
	if len(patterns) != 0 {
		t.Errorf("expected no pattern with fewer than 3 samples, got %v", patterns)
	}
}
