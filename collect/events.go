package collect

import "time"

// MarketEvent is emitted by MarketCollector when a watched symbol's 24h
// change exceeds the configured threshold.
type MarketEvent struct {
	Symbol     string
	Price      float64
	Volume     float64
	Indicators map[string]float64
	Timestamp  time.Time
	Metadata   map[string]interface{}
}

// Engagement totals for a social post.
type Engagement struct {
	Likes   int
	Replies int
	Reposts int
	Quotes  int
}

// SocialEvent is emitted by SocialCollector for posts above the engagement
// threshold or from a watched account.
type SocialEvent struct {
	Content    string
	Author     string
	Timestamp  time.Time
	Platform   string
	Engagement Engagement
	Sentiment  float64
	Metadata   map[string]interface{}
}

// NewsEvent is emitted by NewsCollector for sufficiently relevant search
// results.
type NewsEvent struct {
	Title          string
	URL            string
	PublishedAt    time.Time
	Source         string
	Description    string
	RelevanceScore float64
	Topics         []string
	Sentiment      float64
	RelatedAssets  []string
}
