// Package collect implements the Collectors (C6): market, social, news,
// and video-transcript collectors that poll external sources under the
// RateGate and append UTC-stamped events, never touching the graph
// directly.
package collect

import (
	"context"
	"time"
)

// Bar is one minute-granularity price/volume sample.
type Bar struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// Quote is a point-in-time price read.
type Quote struct {
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// QuoteSource is the external market-data capability MarketCollector polls.
type QuoteSource interface {
	PriceNow(ctx context.Context, symbol string) (Quote, error)
	History(ctx context.Context, symbol string, window time.Duration) ([]Bar, error)
}

// Post is one social-media post as returned by a SocialPlatform.
type Post struct {
	ID        string
	Author    string
	Content   string
	Timestamp time.Time
	Likes     int
	Replies   int
	Reposts   int
	Quotes    int
}

// User is a social-platform account.
type User struct {
	ID     string
	Handle string
}

// SocialPlatform is the external capability SocialCollector polls.
type SocialPlatform interface {
	SearchRecent(ctx context.Context, query string, max int) (posts []Post, remaining int, resetAt time.Time, err error)
	Mentions(ctx context.Context, userID string, sinceID string) (posts []Post, remaining int, resetAt time.Time, err error)
	UserByHandle(ctx context.Context, handle string) (User, error)
	Post(ctx context.Context, text string, replyTo string) (postID string, err error)
}

// SearchResult is one WebSearch hit.
type SearchResult struct {
	Title       string
	URL         string
	Source      string
	Description string
	PublishedAt time.Time
}

// WebSearch is the external capability NewsCollector queries.
type WebSearch interface {
	Query(ctx context.Context, text string, count int, timeBound time.Duration) ([]SearchResult, error)
}

// TranscriptSegment is one timed chunk of a video transcript.
type TranscriptSegment struct {
	Text     string
	Start    float64
	Duration float64
}

// VideoTranscriptSource is the external capability VideoTranscriptCollector
// fetches from.
type VideoTranscriptSource interface {
	Transcript(ctx context.Context, videoID string) ([]TranscriptSegment, error)
}

// ExtractedEntity is one entity TaskManager pulled out of a transcript chunk.
type ExtractedEntity struct {
	Name string
	Type string
}

// TaskManager is the external LLM-backed capability VideoTranscriptCollector
// uses for entity extraction and topic segmentation over transcript chunks.
type TaskManager interface {
	ExtractEntities(ctx context.Context, chunk string) ([]ExtractedEntity, error)
	SegmentTopics(ctx context.Context, chunk string) ([]string, error)
}
