package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wyrmwatch/sentinel/ratelimit"
)

// DefaultRelevanceThreshold is the minimum relevance score a search result
// needs to become a NewsEvent.
const DefaultRelevanceThreshold = 0.4

// NewsCollector issues time-bounded web-search queries and scores results
// by keyword hits and recency, deduplicating by URL.
type NewsCollector struct {
	search    WebSearch
	gate      *ratelimit.Gate
	scorer    SentimentScorer
	keywords  []string
	assets    []string
	threshold float64
	seenURLs  map[string]bool
}

// NewNewsCollector returns a NewsCollector scoring against keywords and
// tagging results with any of assets it mentions. threshold<=0 uses
// DefaultRelevanceThreshold.
func NewNewsCollector(search WebSearch, gate *ratelimit.Gate, scorer SentimentScorer, keywords, assets []string, threshold float64) *NewsCollector {
	if scorer == nil {
		scorer = DefaultSentimentScorer{}
	}
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	return &NewsCollector{search: search, gate: gate, scorer: scorer, keywords: keywords, assets: assets, threshold: threshold, seenURLs: make(map[string]bool)}
}

// Poll issues query once and emits NewsEvents for sufficiently relevant,
// not-yet-seen results, scored against the configured keywords.
func (c *NewsCollector) Poll(ctx context.Context, now time.Time, query string, timeBound time.Duration) ([]NewsEvent, error) {
	if c.gate.Acquire("news:search", now).Decision != ratelimit.Grant {
		return nil, nil
	}

	results, err := c.search.Query(ctx, query, 25, timeBound)
	if err != nil {
		return nil, fmt.Errorf("collect: news query %q: %w", query, err)
	}

	var events []NewsEvent
	for _, r := range results {
		if c.seenURLs[r.URL] {
			continue
		}

		score := c.relevance(r, now)
		if score <= c.threshold {
			continue
		}
		c.seenURLs[r.URL] = true

		events = append(events, NewsEvent{
			Title:          r.Title,
			URL:            r.URL,
			PublishedAt:    r.PublishedAt.UTC(),
			Source:         r.Source,
			Description:    r.Description,
			RelevanceScore: score,
			Topics:         c.matchedKeywords(r),
			Sentiment:      c.scorer.Score(r.Title + " " + r.Description),
			RelatedAssets:  c.matchedAssets(r),
		})
	}
	return events, nil
}

func (c *NewsCollector) relevance(r SearchResult, now time.Time) float64 {
	text := strings.ToLower(r.Title + " " + r.Description)
	hits := 0
	for _, k := range c.keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			hits++
		}
	}
	if len(c.keywords) == 0 {
		return 0
	}
	keywordScore := float64(hits) / float64(len(c.keywords))

	age := now.Sub(r.PublishedAt)
	recencyScore := 1.0
	if age > 0 {
		recencyScore = 1.0 / (1.0 + age.Hours()/24.0)
	}

	return clamp01(0.7*keywordScore + 0.3*recencyScore)
}

func (c *NewsCollector) matchedKeywords(r SearchResult) []string {
	text := strings.ToLower(r.Title + " " + r.Description)
	var topics []string
	for _, k := range c.keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			topics = append(topics, k)
		}
	}
	return topics
}

func (c *NewsCollector) matchedAssets(r SearchResult) []string {
	text := strings.ToLower(r.Title + " " + r.Description)
	var assets []string
	for _, a := range c.assets {
		if strings.Contains(text, strings.ToLower(a)) {
			assets = append(assets, a)
		}
	}
	return assets
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
