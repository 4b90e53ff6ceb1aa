package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wyrmwatch/sentinel/collect"
	"github.com/wyrmwatch/sentinel/errs"
	"github.com/wyrmwatch/sentinel/kgraph"
	"github.com/wyrmwatch/sentinel/outbound"
	"github.com/wyrmwatch/sentinel/pattern"
	"github.com/wyrmwatch/sentinel/ratelimit"
	"github.com/wyrmwatch/sentinel/store"
)

type fakeQuoteSource struct{ price, prevPrice float64 }

func (f *fakeQuoteSource) PriceNow(ctx context.Context, symbol string) (collect.Quote, error) {
	return collect.Quote{Price: f.price, Volume: 1000, Timestamp: time.Now().UTC()}, nil
}

func (f *fakeQuoteSource) History(ctx context.Context, symbol string, window time.Duration) ([]collect.Bar, error) {
	return []collect.Bar{{Timestamp: time.Now().UTC().Add(-window), Price: f.prevPrice}}, nil
}

func newTestScheduler() (*Scheduler, *UnifiedState) {
	st := NewUnifiedState("thread-1")
	cp := store.NewCheckpointer(store.NewInMemoryStore(), st.SessionID)
	sched := NewScheduler(st, cp, ratelimit.New(0), ratelimit.NewRetryHandler(ratelimit.LinearBackoff{Base: 1}, 3), nil, nil, nil)
	return sched, st
}

func TestScheduler_MonitorAdvancesThroughRAGToPatternDetect(t *testing.T) {
	sched, st := newTestScheduler()
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("monitor step: %v", err)
	}
	if st.CurrentStage != RAGContext {
		t.Fatalf("expected RAG_CONTEXT after MONITOR, got %s", st.CurrentStage)
	}

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("rag step: %v", err)
	}
	if st.CurrentStage != PatternDetect {
		t.Fatalf("expected PATTERN_DETECT after RAG_CONTEXT, got %s", st.CurrentStage)
	}
}

func TestScheduler_PatternDetectRoutesToMonitorWhenEmpty(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = PatternDetect
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Monitor {
		t.Fatalf("expected MONITOR when no patterns, got %s", st.CurrentStage)
	}
}

func TestScheduler_PatternDetectRoutesToAssessWhenPopulated(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = PatternDetect
	st.MarketPatterns = []pattern.Pattern{{PatternType: "topic_cycle", Confidence: 0.9}}
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Assess {
		t.Fatalf("expected ASSESS when patterns present, got %s", st.CurrentStage)
	}
	if !st.CheckpointNeeded {
		t.Errorf("expected checkpoint needed on PATTERN_DETECT->ASSESS")
	}
}

func TestScheduler_AssessEndsRunWhenBelowThreshold(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = Assess
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != End {
		t.Fatalf("expected END for low significance, got %s", st.CurrentStage)
	}
}

func TestScheduler_AssessRoutesToCausalMatchWhenSignificant(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = Assess
	st.NewsPatterns = []pattern.Pattern{{PatternType: "propaganda"}, {PatternType: "propaganda"}}
	st.Correlations = []interface{}{"a"}
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != CausalMatch {
		t.Fatalf("expected CAUSAL_MATCH for high significance, got %s (sig=%v)", st.CurrentStage, st.Assessment.Significance)
	}
}

func TestScheduler_NarrateQueuesThreadSegmentsForHighSignificance(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = Narrate
	st.Assessment.Significance = 0.9
	st.Assessment.ResponseType = ThreadAnalysis
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Queue {
		t.Fatalf("expected QUEUE after NARRATE, got %s", st.CurrentStage)
	}
	if st.PostQueue.Len() == 0 {
		t.Fatalf("expected at least one queued post")
	}
}

func TestScheduler_QueueWaitsWhenRateLimited(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = Queue
	st.PostQueue.Add(outbound.QueuedPost{ID: "p1", Content: "hi", Priority: 1})
	sched.Gate.UpdateFromHeaders(sched.PostEndpoint, 1, 0, st.Timestamp.Add(3600_000_000_000))
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Queue {
		t.Fatalf("expected to stay at QUEUE when rate limited, got %s", st.CurrentStage)
	}
}

func TestScheduler_ErrorStageEndsOnCritical(t *testing.T) {
	sched, st := newTestScheduler()
	st.AppendError(Monitor, errs.New(errs.Fatal, "boom"), true)
	st.CurrentStage = Error
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != End {
		t.Fatalf("expected END after critical error, got %s", st.CurrentStage)
	}
}

func TestScheduler_ErrorStageReturnsToMonitorOnNonCritical(t *testing.T) {
	sched, st := newTestScheduler()
	st.AppendError(Monitor, errors.New("transient blip"), false)
	st.CurrentStage = Error
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Monitor {
		t.Fatalf("expected MONITOR after non-critical error, got %s", st.CurrentStage)
	}
}

func TestScheduler_PanicInStageIsRoutedToErrorLog(t *testing.T) {
	sched, st := newTestScheduler()
	sched.stages[Monitor] = func(ctx context.Context, s *UnifiedState) (stageResult, error) {
		panic("unexpected")
	}
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(st.ErrorLog) != 1 {
		t.Fatalf("expected one error log entry, got %d", len(st.ErrorLog))
	}
	if st.CurrentStage != Error {
		t.Fatalf("expected ERROR after panic, got %s", st.CurrentStage)
	}
}

func TestIsCritical_PlainErrorDefaultsCritical(t *testing.T) {
	if !isCritical(errors.New("whatever")) {
		t.Errorf("expected a plain error to be treated as critical")
	}
}

func TestIsCritical_TransientIsNotCritical(t *testing.T) {
	if isCritical(errs.New(errs.Transient, "retrying")) {
		t.Errorf("expected Transient to be non-critical")
	}
}

func TestScheduler_MonitorPollsConfiguredCollector(t *testing.T) {
	sched, st := newTestScheduler()
	sched.MarketCollector = collect.NewMarketCollector(&fakeQuoteSource{price: 110, prevPrice: 100}, ratelimit.New(0), []string{"BTC"}, 0)
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(st.MarketEvents) != 1 {
		t.Fatalf("expected monitor to poll the configured collector, got %d events", len(st.MarketEvents))
	}
}

func TestScheduler_PatternDetectRunsRealDetectorsAgainstGraph(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = PatternDetect

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		st.Graph.AddEntity("narrative", map[string]kgraph.Property{
			"category": {Key: "category", Value: "manipulation"},
		}, kgraph.AddEntityOptions{Temporal: true, ValidFrom: now})
	}

	ctx := context.Background()
	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.CurrentStage != Assess {
		t.Fatalf("expected ASSESS once a dominant narrative is detected, got %s", st.CurrentStage)
	}

	var found bool
	for _, p := range st.SocialPatterns {
		if p.PatternType == "dominant_narrative" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DetectDominantNarratives' output in SocialPatterns, got %+v", st.SocialPatterns)
	}
}

func TestScheduler_NarrateDropsPostsAtQueueCapacity(t *testing.T) {
	sched, st := newTestScheduler()
	st.PostQueue = outbound.NewPostQueueWithCap(1)
	st.PostQueue.Add(outbound.QueuedPost{ID: "already-queued", Priority: 1, CreatedAt: time.Now()})
	st.CurrentStage = Narrate
	st.Assessment.Significance = 0.9
	st.Assessment.ResponseType = QuickTake
	ctx := context.Background()

	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.PostQueue.Len() != 1 {
		t.Fatalf("expected the new post refused at cap, got len %d", st.PostQueue.Len())
	}
	if len(st.ErrorLog) != 1 {
		t.Fatalf("expected one backpressure error log entry, got %d", len(st.ErrorLog))
	}
	if st.ErrorLog[0].Critical {
		t.Errorf("expected backpressure drop logged as non-critical")
	}
}

func TestScheduler_EvolveUpdatesMetricsAndLongTermMemory(t *testing.T) {
	sched, st := newTestScheduler()
	st.CurrentStage = Evolve
	st.Assessment.Significance = 0.8
	st.Assessment.Analysis.Confidence = 0.9
	st.Assessment.Analysis.Warnings = []string{"watch this"}
	ctx := context.Background()

	before := st.Evolution.PredictionAccuracy
	if _, err := sched.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.Evolution.PredictionAccuracy == before {
		t.Errorf("expected PredictionAccuracy to move off its default via EMA")
	}
	if len(st.Memory.LongTerm) != 1 {
		t.Fatalf("expected one long-term memory entry, got %d", len(st.Memory.LongTerm))
	}
}
