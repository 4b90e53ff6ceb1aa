package pattern

import (
	"time"

	"github.com/wyrmwatch/sentinel/kgraph"
)

// DefaultTimeframe is the detection window every detector defaults to when
// the caller does not override it.
const DefaultTimeframe = 3600 * time.Second

// DetectTopicCycles walks outgoing topic_transition edges depth-first from
// every topic whose validFrom falls within the last timeframe of now,
// tracking the categories seen on the current path. A cycle fires when the
// current topic's category repeats a category already on the path at
// depth > 0.
func DetectTopicCycles(g *kgraph.Graph, now time.Time, timeframe time.Duration) []Pattern {
	if timeframe <= 0 {
		timeframe = DefaultTimeframe
	}

	var patterns []Pattern
	topics := g.GetEntitiesByType("topic")

	for _, start := range topics {
		if start.Temporal == nil || now.Sub(start.Temporal.ValidFrom) > timeframe {
			continue
		}

		seenIDs := map[string]bool{start.ID: true}
		seenCategories := make(map[string]int) // category -> first depth seen
		pathCategories := []string{}

		startCategory, _ := propString(start, "category")
		if startCategory != "" {
			seenCategories[startCategory] = 0
			pathCategories = append(pathCategories, startCategory)
		}

		var dfs func(current *kgraph.Entity, depth int)
		dfs = func(current *kgraph.Entity, depth int) {
			for _, rel := range g.GetRelationshipsByType("topic_transition", current.ID) {
				next, err := g.GetEntity(rel.TargetID)
				if err != nil {
					continue
				}
				if seenIDs[next.ID] {
					continue
				}
				if next.Temporal != nil && start.Temporal != nil {
					if next.Temporal.ValidFrom.Sub(start.Temporal.ValidFrom) > timeframe {
						continue
					}
				}

				nextCategory, _ := propString(next, "category")
				if _, already := seenCategories[nextCategory]; already && depth+1 > 0 {
					length := depth + 1
					patterns = append(patterns, Pattern{
						PatternType:   "topic_cycle",
						StartCategory: startCategory,
						Length:        length,
						Categories:    dedupeCategories(append(append([]string{}, pathCategories...), nextCategory)),
						Confidence:    clamp(0.8+0.1*float64(min(length, 2)), 0, 1),
					})
					continue
				}

				seenIDs[next.ID] = true
				_, hadCategory := seenCategories[nextCategory]
				if !hadCategory {
					seenCategories[nextCategory] = depth + 1
				}
				pathCategories = append(pathCategories, nextCategory)

				dfs(next, depth+1)

				pathCategories = pathCategories[:len(pathCategories)-1]
				if !hadCategory {
					delete(seenCategories, nextCategory)
				}
				seenIDs[next.ID] = false
			}
		}

		dfs(start, 0)
	}

	return patterns
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func dedupeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
