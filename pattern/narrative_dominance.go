package pattern

import "github.com/wyrmwatch/sentinel/kgraph"

// DetectDominantNarratives groups narrative entities by their "category"
// property and flags any category whose share exceeds 30% of the total,
// confidence = 0.7 + 0.2*frequency.
func DetectDominantNarratives(g *kgraph.Graph) []Pattern {
	narratives := g.GetEntitiesByType("narrative")
	total := len(narratives)
	if total == 0 {
		return nil
	}

	byCategory := make(map[string]int)
	for _, n := range narratives {
		prop, ok := n.Properties["category"]
		if !ok {
			continue
		}
		category, ok := prop.Value.(string)
		if !ok || category == "" {
			continue
		}
		byCategory[category]++
	}

	var patterns []Pattern
	for category, count := range byCategory {
		frequency := float64(count) / float64(total)
		if frequency <= 0.3 {
			continue
		}
		patterns = append(patterns, Pattern{
			PatternType: "dominant_narrative",
			Category:    category,
			Confidence:  clamp01(0.7 + 0.2*frequency),
			Metadata:    map[string]interface{}{"frequency": frequency, "count": count},
		})
	}
	return patterns
}

// DetectRepeatedClaims groups claim entities by their "text" property and
// flags any claim text repeated more than once, confidence = 0.6 +
// 0.1*min(count,5).
func DetectRepeatedClaims(g *kgraph.Graph) []Pattern {
	claims := g.GetEntitiesByType("claim")
	counts := make(map[string]int)
	for _, c := range claims {
		prop, ok := c.Properties["text"]
		if !ok {
			continue
		}
		text, ok := prop.Value.(string)
		if !ok || text == "" {
			continue
		}
		counts[text]++
	}

	var patterns []Pattern
	for text, count := range counts {
		if count <= 1 {
			continue
		}
		capped := count
		if capped > 5 {
			capped = 5
		}
		patterns = append(patterns, Pattern{
			PatternType: "repeated_claim",
			Description: text,
			Confidence:  clamp01(0.6 + 0.1*float64(capped)),
			Metadata:    map[string]interface{}{"frequency": count},
		})
	}
	return patterns
}
