// Command sentinel runs the autonomous analysis scheduler: it restores the
// latest checkpoint for its configured thread (if any), then drives the
// twelve-stage workflow until shutdown.
//
// Exit codes:
//
//	0 - clean shutdown
//	1 - unrecoverable initialization failure
//	2 - the scheduler stopped after exceeding its critical-error budget
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyrmwatch/sentinel/causal"
	"github.com/wyrmwatch/sentinel/collect"
	"github.com/wyrmwatch/sentinel/config"
	"github.com/wyrmwatch/sentinel/emit"
	"github.com/wyrmwatch/sentinel/engine"
	"github.com/wyrmwatch/sentinel/model"
	"github.com/wyrmwatch/sentinel/model/anthropic"
	"github.com/wyrmwatch/sentinel/model/google"
	"github.com/wyrmwatch/sentinel/model/openai"
	"github.com/wyrmwatch/sentinel/ratelimit"
	"github.com/wyrmwatch/sentinel/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("sentinel: config load failed: %v", err)
		return 1
	}

	backingStore, err := openStore(cfg)
	if err != nil {
		log.Printf("sentinel: store init failed: %v", err)
		return 1
	}

	cp := store.NewCheckpointer(backingStore, cfg.ThreadID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	state, err := restoreOrNew(ctx, cp, cfg.ThreadID)
	if err != nil {
		log.Printf("sentinel: state restore failed: %v", err)
		return 1
	}

	costs := model.NewCostTracker(cfg.ThreadID, "USD")
	llm := selectLLM(cfg, costs)
	analyzer := causal.New(nil, nil, llm, cfg.CausalCacheTTL)

	gate := ratelimit.New(cfg.RateLimitMinInterval)
	retry := ratelimit.NewRetryHandler(ratelimit.NewExponentialBackoff(1, 60, 2), 3)

	emitter := emit.NewLogEmitter(os.Stdout, cfg.LogJSON)

	sched := engine.NewScheduler(state, cp, gate, retry, analyzer, nil, emitter)
	sched.Metrics = engine.NewMetrics(nil)
	sched.NewsQuery = cfg.NewsQuery
	state.PostQueue.SetMaxSize(cfg.PostQueueMaxSize)
	wireCollectors(sched, cfg)
	defer func() { log.Print(costs.String()) }()

	if err := sched.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Printf("sentinel: shutdown requested: %v", err)
			return 0
		}
		log.Printf("sentinel: scheduler stopped: %v", err)
		return 2
	}
	return 0
}

// wireCollectors assigns sched.MarketCollector/SocialCollector/
// NewsCollector/VideoCollector whenever cfg supplies enough to construct
// one. None of collect's QuoteSource/SocialPlatform/WebSearch/
// VideoTranscriptSource interfaces has a concrete wire client in this
// repo (the spec scopes live market/social/search/video feeds out as
// integration surfaces, not MONITOR's job), so every branch below is
// presently unreachable and every collector stays nil. The call path
// itself is real: engine.Scheduler.monitor already polls whichever of
// these fields is set and folds the results into UnifiedState and the
// knowledge graph, so wiring a client in here is the only remaining step
// once one exists.
func wireCollectors(sched *engine.Scheduler, cfg *config.Config) {
	var quoteSource collect.QuoteSource
	if quoteSource != nil {
		sched.MarketCollector = collect.NewMarketCollector(quoteSource, sched.Gate, nil, cfg.MarketChangeThreshold)
	}

	var socialPlatform collect.SocialPlatform
	if socialPlatform != nil {
		sched.SocialCollector = collect.NewSocialCollector(socialPlatform, sched.Gate, nil, nil, nil, 0)
	}

	var webSearch collect.WebSearch
	if webSearch != nil {
		sched.NewsCollector = collect.NewNewsCollector(webSearch, sched.Gate, nil, nil, nil, 0)
	}

	var videoSource collect.VideoTranscriptSource
	if videoSource != nil {
		sched.VideoCollector = collect.NewVideoTranscriptCollector(videoSource, nil)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.StoreDSN)
	case "mysql":
		return store.NewMySQLStore(cfg.StoreDSN)
	default:
		return store.NewInMemoryStore(), nil
	}
}

// restoreOrNew loads the most recent checkpoint for threadID, or starts a
// fresh UnifiedState if none exists.
func restoreOrNew(ctx context.Context, cp *store.Checkpointer, threadID string) (*engine.UnifiedState, error) {
	env, err := cp.Restore(ctx, nil)
	if err != nil {
		if err == store.ErrNotFound {
			return engine.NewUnifiedState(threadID), nil
		}
		return nil, fmt.Errorf("restore checkpoint: %w", err)
	}

	state := engine.NewUnifiedState(threadID)
	if err := json.Unmarshal(env.State, state); err != nil {
		return nil, fmt.Errorf("unmarshal checkpointed state: %w", err)
	}
	state.Step = env.Step
	return state, nil
}

// selectLLM picks the first configured provider, in the order the teacher
// surfaces them (Anthropic, OpenAI, Google), so CAUSAL_MATCH's warnings and
// prevention strategies have a concrete model behind them whenever any key
// is present. Every call is priced against costs via CostedLLM.
func selectLLM(cfg *config.Config, costs *model.CostTracker) model.LLMClient {
	stage := string(engine.CausalMatch)
	switch {
	case cfg.AnthropicAPIKey != "":
		return model.CostedLLM{Model: anthropic.NewChatModel(cfg.AnthropicAPIKey, ""), Tracker: costs, Stage: stage}
	case cfg.OpenAIAPIKey != "":
		return model.CostedLLM{Model: openai.NewChatModel(cfg.OpenAIAPIKey, ""), Tracker: costs, Stage: stage}
	case cfg.GoogleAPIKey != "":
		return model.CostedLLM{Model: google.NewChatModel(cfg.GoogleAPIKey, ""), Tracker: costs, Stage: stage}
	default:
		return nil
	}
}
