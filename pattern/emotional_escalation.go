package pattern

import (
	"sort"
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

// MinEmotionalEscalationConfidence is the default emission threshold.
const MinEmotionalEscalationConfidence = 0.6

// MinEmotionalEscalationTrend is the minimum fear/anger trend required to
// consider a category's sequence at all.
const MinEmotionalEscalationTrend = 0.3

// DetectEmotionalEscalation groups topics by category within timeframe of
// now, requires at least 3 ordered samples, and emits a Pattern when the
// fear or anger trend across the sequence reaches MinEmotionalEscalationTrend.
func DetectEmotionalEscalation(g *kgraph.Graph, now time.Time, timeframe time.Duration) []Pattern {
	if timeframe <= 0 {
		timeframe = DefaultTimeframe
	}

	byCategory := make(map[string][]*kgraph.Entity)
	for _, t := range g.GetEntitiesByType("topic") {
		if t.Temporal == nil || now.Sub(t.Temporal.ValidFrom) > timeframe {
			continue
		}
		cat, _ := propString(t, "category")
		byCategory[cat] = append(byCategory[cat], t)
	}

	var patterns []Pattern
	for category, topics := range byCategory {
		if len(topics) < 3 {
			continue
		}
		sort.Slice(topics, func(i, j int) bool {
			return topics[i].Temporal.ValidFrom.Before(topics[j].Temporal.ValidFrom)
		})

		n := len(topics)
		firstFear, _ := sentimentField(topics[0], "fear")
		lastFear, _ := sentimentField(topics[n-1], "fear")
		firstAnger, _ := sentimentField(topics[0], "anger")
		lastAnger, _ := sentimentField(topics[n-1], "anger")
		firstIntensity, _ := sentimentField(topics[0], "intensity")
		lastIntensity, _ := sentimentField(topics[n-1], "intensity")

		fearTrend := lastFear - firstFear
		angerTrend := lastAnger - firstAnger
		intensityTrend := lastIntensity - firstIntensity

		trend := fearTrend
		if angerTrend > trend {
			trend = angerTrend
		}
		if trend < MinEmotionalEscalationTrend {
			continue
		}

		confidence := 0.5*clamp(trend/0.3, 0, 1) +
			0.3*clamp(intensityTrend/0.3, 0, 1) +
			0.2*clamp(float64(n-2)/3, 0, 1)
		confidence = clamp(confidence, 0, 1)

		if confidence < MinEmotionalEscalationConfidence {
			continue
		}

		patterns = append(patterns, Pattern{
			PatternType: "emotional_manipulation",
			Category:    category,
			Confidence:  confidence,
			FearLevel:   lastFear,
			Metadata: map[string]interface{}{
				"fearLevel":      lastFear,
				"fearTrend":      fearTrend,
				"angerTrend":     angerTrend,
				"intensityTrend": intensityTrend,
				"sampleSize":     n,
			},
		})
	}

	return patterns
}
