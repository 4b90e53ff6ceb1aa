package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/wyrmwatch/sentinel/ratelimit"
)

// DefaultEngagementThreshold is the minimum total engagement a post needs
// to be significant on its own, absent a watched-account override.
const DefaultEngagementThreshold = 50

// SocialCollector polls a SocialPlatform for configured queries and a
// watchlist of accounts, scoring sentiment and engagement per post.
type SocialCollector struct {
	platform    SocialPlatform
	gate        *ratelimit.Gate
	scorer      SentimentScorer
	queries     []string
	watchlist   []string
	engagementMin int
}

// NewSocialCollector returns a SocialCollector. scorer defaults to
// DefaultSentimentScorer when nil; engagementMin<=0 uses
// DefaultEngagementThreshold.
func NewSocialCollector(platform SocialPlatform, gate *ratelimit.Gate, scorer SentimentScorer, queries, watchlist []string, engagementMin int) *SocialCollector {
	if scorer == nil {
		scorer = DefaultSentimentScorer{}
	}
	if engagementMin <= 0 {
		engagementMin = DefaultEngagementThreshold
	}
	return &SocialCollector{platform: platform, gate: gate, scorer: scorer, queries: queries, watchlist: watchlist, engagementMin: engagementMin}
}

// Poll searches every configured query and fetches every watched
// account's mentions, emitting a SocialEvent for posts meeting the
// engagement threshold or from a watched account (always significant).
func (c *SocialCollector) Poll(ctx context.Context, now time.Time) ([]SocialEvent, error) {
	var events []SocialEvent

	for _, q := range c.queries {
		if c.gate.Acquire("social:search", now).Decision != ratelimit.Grant {
			continue
		}
		posts, remaining, resetAt, err := c.platform.SearchRecent(ctx, q, 50)
		if err != nil {
			return events, fmt.Errorf("collect: search recent %q: %w", q, err)
		}
		c.gate.UpdateFromHeaders("social:search", 0, remaining, resetAt)

		for _, p := range posts {
			events = append(events, c.toEvent(p, false))
		}
	}

	for _, handle := range c.watchlist {
		if c.gate.Acquire("social:mentions", now).Decision != ratelimit.Grant {
			continue
		}
		user, err := c.platform.UserByHandle(ctx, handle)
		if err != nil {
			return events, fmt.Errorf("collect: user by handle %q: %w", handle, err)
		}
		posts, remaining, resetAt, err := c.platform.Mentions(ctx, user.ID, "")
		if err != nil {
			return events, fmt.Errorf("collect: mentions %q: %w", handle, err)
		}
		c.gate.UpdateFromHeaders("social:mentions", 0, remaining, resetAt)

		for _, p := range posts {
			events = append(events, c.toEvent(p, true))
		}
	}

	filtered := make([]SocialEvent, 0, len(events))
	for i, p := range events {
		total := p.Engagement.Likes + p.Engagement.Replies + p.Engagement.Reposts + p.Engagement.Quotes
		watched, _ := events[i].Metadata["watched_account"].(bool)
		if total >= c.engagementMin || watched {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (c *SocialCollector) toEvent(p Post, watched bool) SocialEvent {
	return SocialEvent{
		Content:   p.Content,
		Author:    p.Author,
		Timestamp: p.Timestamp.UTC(),
		Platform:  "social",
		Engagement: Engagement{
			Likes: p.Likes, Replies: p.Replies, Reposts: p.Reposts, Quotes: p.Quotes,
		},
		Sentiment: c.scorer.Score(p.Content),
		Metadata: map[string]interface{}{
			"postId":          p.ID,
			"watched_account": watched,
		},
	}
}
