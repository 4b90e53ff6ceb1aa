package engine

import (
	"github.com/wyrmwatch/sentinel/collect"
	"github.com/wyrmwatch/sentinel/kgraph"
)

// ingestNewsTopics writes one "topic" entity per topic matched on a
// NewsEvent, category set to the topic string, chained by a
// topic_transition relationship in the order the events are given (not
// sorted by PublishedAt) so DetectTopicCycles and
// DetectNarrativeRepetition have real material to walk.
func ingestNewsTopics(g *kgraph.Graph, events []collect.NewsEvent) {
	var prevID string
	for _, ev := range events {
		for _, topic := range ev.Topics {
			e, err := g.AddEntity("topic", map[string]kgraph.Property{
				"category": {Key: "category", Value: topic, Source: "news"},
				"title":    {Key: "title", Value: ev.Title, Source: "news"},
			}, kgraph.AddEntityOptions{Temporal: true, ValidFrom: ev.PublishedAt})
			if err != nil {
				continue
			}
			if prevID != "" {
				g.AddRelationship("topic_transition", prevID, e.ID, nil, nil, kgraph.After)
			}
			prevID = e.ID
		}

		if ev.Title != "" {
			g.AddEntity("claim", map[string]kgraph.Property{
				"text": {Key: "text", Value: ev.Title, Source: "news"},
			}, kgraph.AddEntityOptions{Temporal: true, ValidFrom: ev.PublishedAt})
		}
	}
}

// ingestSocialNarratives writes one "narrative" entity per SocialEvent,
// category set to the originating platform, so DetectDominantNarratives
// has real material. It adds no topic_transition edges, so
// DetectCoordinatedShifts gets nothing from it.
func ingestSocialNarratives(g *kgraph.Graph, events []collect.SocialEvent) {
	for _, ev := range events {
		g.AddEntity("narrative", map[string]kgraph.Property{
			"category":  {Key: "category", Value: ev.Platform, Source: "social"},
			"content":   {Key: "content", Value: ev.Content, Source: "social"},
			"author":    {Key: "author", Value: ev.Author, Source: "social"},
			"sentiment": {Key: "sentiment", Value: ev.Sentiment, Source: "social"},
		}, kgraph.AddEntityOptions{Temporal: true, ValidFrom: ev.Timestamp})
	}
}

// ingestVideoEntities writes one "narrative" entity per extracted topic so
// a video's LLM-segmented topics feed the same detectors as live social
// narratives.
func ingestVideoEntities(g *kgraph.Graph, result collect.Result) {
	for _, topic := range result.Topics {
		g.AddEntity("narrative", map[string]kgraph.Property{
			"category": {Key: "category", Value: topic, Source: "video"},
		}, kgraph.AddEntityOptions{})
	}
}
