package causal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wyrmwatch/sentinel/model"
)

// DefaultCacheTTL is the analyzer's in-memory analysis cache lifetime.
const DefaultCacheTTL = 3600 * time.Second

var preTwentyTwentyFour = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type cacheEntry struct {
	analysis  Analysis
	expiresAt time.Time
}

// Analyzer holds the historical event/chain library, an LLM client for the
// warnings/strategies step, and a TTL cache of prior analyses.
type Analyzer struct {
	mu     sync.Mutex
	events []Event
	chains []TimelineChain
	llm    model.LLMClient
	ttl    time.Duration
	cache  map[string]cacheEntry
}

// New returns an Analyzer over the given historical library. ttl<=0 uses
// DefaultCacheTTL.
func New(events []Event, chains []TimelineChain, llm model.LLMClient, ttl time.Duration) *Analyzer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Analyzer{events: events, chains: chains, llm: llm, ttl: ttl, cache: make(map[string]cacheEntry)}
}

func cacheKey(e CurrentEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", e.Category, e.Scope, e.Description, e.Timestamp.Unix())
}

// Analyze matches current against the historical library and produces a
// CausalAnalysis, consulting the TTL cache first.
func (a *Analyzer) Analyze(ctx context.Context, current CurrentEvent) (Analysis, error) {
	key := cacheKey(current)
	now := time.Now().UTC()

	a.mu.Lock()
	if entry, ok := a.cache[key]; ok {
		if now.Before(entry.expiresAt) {
			a.mu.Unlock()
			return entry.analysis, nil
		}
		delete(a.cache, key)
	}
	a.mu.Unlock()

	historical := a.historicalParallels(current)
	chains := a.matchedChains(current)

	baseConfidence := 0.3
	if len(historical) > 0 && len(chains) > 0 {
		sum := 0.0
		for _, h := range historical {
			sum += h.Confidence
		}
		meanConfidence := sum / float64(len(historical))
		chainFactor := float64(len(chains)) / 3.0
		if chainFactor > 1.0 {
			chainFactor = 1.0
		}
		baseConfidence = meanConfidence * chainFactor
	}

	warnings, strategies, err := a.llmStep(ctx, current, historical, chains)
	if err != nil {
		return Analysis{}, err
	}

	llmConfidence := float64(len(warnings))*0.2 + float64(len(strategies))*0.2
	if llmConfidence > 0.6 {
		llmConfidence = 0.6
	}

	finalConfidence := baseConfidence + llmConfidence
	if finalConfidence > 1.0 {
		finalConfidence = 1.0
	}

	analysis := Analysis{
		CurrentEvent:         current,
		Timestamp:            now,
		HistoricalParallels:  historical,
		MatchedChains:        chains,
		Warnings:             warnings,
		PreventionStrategies: strategies,
		Confidence:           finalConfidence,
	}

	a.mu.Lock()
	a.cache[key] = cacheEntry{analysis: analysis, expiresAt: now.Add(a.ttl)}
	a.mu.Unlock()

	return analysis, nil
}

func (a *Analyzer) historicalParallels(current CurrentEvent) []Event {
	var out []Event
	for _, e := range a.events {
		if !e.Timestamp.Before(preTwentyTwentyFour) {
			continue
		}
		if e.Category != current.Category || e.Scope != current.Scope {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (a *Analyzer) matchedChains(current CurrentEvent) []TimelineChain {
	var out []TimelineChain
	for _, c := range a.chains {
		if _, ok := c.Categories[current.Category]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (a *Analyzer) llmStep(ctx context.Context, current CurrentEvent, historical []Event, chains []TimelineChain) ([]string, []string, error) {
	if a.llm == nil {
		return nil, nil, nil
	}
	prompt := buildLLMPrompt(current, historical, chains)
	text, err := a.llm.Complete(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("causal: llm step: %w", err)
	}
	return parseWarningsAndStrategies(text)
}

// ClearExpired purges every cache entry whose TTL has elapsed as of now.
func (a *Analyzer) ClearExpired(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	purged := 0
	for k, entry := range a.cache {
		if !now.Before(entry.expiresAt) {
			delete(a.cache, k)
			purged++
		}
	}
	return purged
}

// CacheStats summarizes the analysis cache's current occupancy.
type CacheStats struct {
	Size    int
	Oldest  time.Time
	Newest  time.Time
}

// GetCacheStats returns the supplemented cache introspection the original
// checkpointing module exposed alongside the analysis cache.
func (a *Analyzer) GetCacheStats() CacheStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := CacheStats{Size: len(a.cache)}
	expirations := make([]time.Time, 0, len(a.cache))
	for _, entry := range a.cache {
		expirations = append(expirations, entry.expiresAt)
	}
	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })
	if len(expirations) > 0 {
		stats.Oldest = expirations[0]
		stats.Newest = expirations[len(expirations)-1]
	}
	return stats
}
