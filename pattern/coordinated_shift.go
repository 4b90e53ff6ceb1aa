package pattern

import (
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

// MinCoordinatedShiftConfidence is the default emission threshold.
const MinCoordinatedShiftConfidence = 0.6

func windowStart(t time.Time) time.Time {
	minute := (t.Minute() / 15) * 15
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

func edgeSourceEntity(rel *kgraph.Relationship) string {
	if rel.Properties == nil {
		return ""
	}
	if p, ok := rel.Properties["source_entity_id"]; ok {
		if s, ok := p.Value.(string); ok {
			return s
		}
	}
	return ""
}

// DetectCoordinatedShifts buckets every base topic's outgoing
// topic_transition edges into 15-minute wall-clock windows and emits a
// Pattern for each window where distinct source entities outnumber
// distinct targets (many sources converging on few targets).
func DetectCoordinatedShifts(g *kgraph.Graph, minConfidence float64) []Pattern {
	if minConfidence <= 0 {
		minConfidence = MinCoordinatedShiftConfidence
	}

	var patterns []Pattern
	for _, base := range g.GetEntitiesByType("topic") {
		edges := g.GetRelationshipsByType("topic_transition", base.ID)
		if len(edges) == 0 {
			continue
		}
		totalTransitions := len(edges)

		windows := make(map[time.Time][]*kgraph.Relationship)
		for _, rel := range edges {
			windows[windowStart(rel.CreatedAt)] = append(windows[windowStart(rel.CreatedAt)], rel)
		}

		type cluster struct {
			window  time.Time
			edges   []*kgraph.Relationship
			sources map[string]struct{}
			targets map[string]struct{}
		}
		var clusters []cluster
		for w, wedges := range windows {
			sources := make(map[string]struct{})
			targets := make(map[string]struct{})
			for _, rel := range wedges {
				if src := edgeSourceEntity(rel); src != "" {
					sources[src] = struct{}{}
				}
				targets[rel.TargetID] = struct{}{}
			}
			if len(sources) >= 2 && len(targets) < len(sources) {
				clusters = append(clusters, cluster{window: w, edges: wedges, sources: sources, targets: targets})
			}
		}

		clusterCount := len(clusters)
		if clusterCount == 0 {
			continue
		}

		for _, c := range clusters {
			sourceRatio := float64(len(c.sources)) / float64(totalTransitions)
			targetRatio := float64(len(c.targets)) / float64(len(c.sources))
			confidence := (sourceRatio*0.7 + targetRatio*0.3) * (1 + 0.1*float64(clusterCount-1))
			confidence = clamp(confidence, 0, 1)

			if confidence < minConfidence {
				continue
			}

			patterns = append(patterns, Pattern{
				PatternType:       "coordinated_shift",
				SourceCount:       len(c.sources),
				SharedTargetCount: len(c.targets),
				Confidence:        confidence,
				Metadata: map[string]interface{}{
					"baseTopicId":  base.ID,
					"window":       c.window,
					"clusterCount": clusterCount,
				},
			})
		}
	}

	return patterns
}
