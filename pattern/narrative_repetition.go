package pattern

import (
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

// DetectNarrativeRepetition groups topics sharing a category within
// timeframe of now and, for every base topic with at least two peers whose
// keyword Jaccard similarity meets the threshold, emits one Pattern per
// group: a topic already reported as the base or a peer of an earlier
// Pattern is not used as a base again.
func DetectNarrativeRepetition(g *kgraph.Graph, now time.Time, timeframe time.Duration) []Pattern {
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
		reported := make(map[string]bool)
		for _, base := range topics {
			if reported[base.ID] {
				continue
			}
			baseKeywords := propStringSet(base, "keywords")

			var relatedIDs []string
			var similarities []float64
			for _, peer := range topics {
				if peer.ID == base.ID {
					continue
				}
				peerKeywords := propStringSet(peer, "keywords")

				var sim float64
				if setEqual(baseKeywords, peerKeywords) {
					sim = 1.0
				} else {
					sim = jaccard(baseKeywords, peerKeywords)
				}
				if sim == 1.0 || sim >= 0.7 {
					relatedIDs = append(relatedIDs, peer.ID)
					similarities = append(similarities, sim)
				}
			}

			if len(relatedIDs) < 2 {
				continue
			}

			sum := 0.0
			for _, s := range similarities {
				sum += s
			}
			confidence := sum / float64(len(similarities))

			patterns = append(patterns, Pattern{
				PatternType: "narrative_repetition",
				Category:    category,
				TopicCount:  len(relatedIDs) + 1,
				Confidence:  clamp(confidence, 0, 1),
				Metadata: map[string]interface{}{
					"baseTopicId":      base.ID,
					"relatedTopicIds":  relatedIDs,
					"similarityScores": similarities,
				},
			})
			reported[base.ID] = true
			for _, id := range relatedIDs {
				reported[id] = true
			}
		}
	}

	return patterns
}
