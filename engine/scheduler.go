package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyrmwatch/sentinel/causal"
	"github.com/wyrmwatch/sentinel/collect"
	"github.com/wyrmwatch/sentinel/emit"
	"github.com/wyrmwatch/sentinel/errs"
	"github.com/wyrmwatch/sentinel/memory"
	"github.com/wyrmwatch/sentinel/outbound"
	"github.com/wyrmwatch/sentinel/pattern"
	"github.com/wyrmwatch/sentinel/ratelimit"
	"github.com/wyrmwatch/sentinel/store"
)

// InteractionStaleAfter is how long an INTERACT item may sit in
// processing before RecoverStuck reclaims it.
const InteractionStaleAfter = 2 * time.Minute

// SignificanceNarrateThreshold gates ASSESS -> NARRATE vs ASSESS -> END.
const SignificanceNarrateThreshold = 0.5

// stageResult is what a stage function hands back to the scheduler: the
// next stage to run and whether the scheduler should checkpoint before
// advancing.
type stageResult struct {
	next             Stage
	checkpointNeeded bool
}

// Poster is the outbound capability POST depends on: publish a queued post
// and report whether the publish itself succeeded.
type Poster interface {
	Publish(ctx context.Context, post outbound.QueuedPost) error
}

// Scheduler is the WorkflowScheduler (C10): it drives UnifiedState through
// the twelve-stage state machine, checkpointing at stage boundaries and
// routing every stage error through the errs-based critical/non-critical
// policy.
type Scheduler struct {
	State *UnifiedState

	Checkpointer *store.Checkpointer
	Gate         *ratelimit.Gate
	Retry        *ratelimit.RetryHandler
	Analyzer     *causal.Analyzer
	Poster       Poster
	Emitter      emit.Emitter

	PostEndpoint string

	// Collectors are the C6 data-gathering capabilities MONITOR polls. Any
	// of these may be nil, in which case that source is skipped; main.go
	// has no concrete QuoteSource/SocialPlatform/WebSearch implementation
	// to construct (see DESIGN.md's collector-wiring note), so production
	// currently runs with all four nil until an operator wires one in.
	MarketCollector *collect.MarketCollector
	SocialCollector *collect.SocialCollector
	NewsCollector   *collect.NewsCollector
	VideoCollector  *collect.VideoTranscriptCollector

	// NewsQuery and NewsTimeBound parameterize NewsCollector.Poll; a zero
	// NewsTimeBound defaults to one hour.
	NewsQuery     string
	NewsTimeBound time.Duration

	// PendingVideoIDs lists video identifiers MONITOR hands to
	// VideoCollector.Collect, one per Run step, FIFO.
	PendingVideoIDs []string

	// VectorMemory is the semantic index (the original system's third
	// memory tier alongside State.Memory's short-term/long-term maps). It
	// is not JSON-serializable, so it lives here rather than on
	// UnifiedState; RAG_CONTEXT queries it and EVOLVE writes to it. Nil
	// disables both.
	VectorMemory *memory.VectorStore

	// RAGResultCount bounds how many semantic-search hits RAG_CONTEXT
	// folds into CurrentContext.
	RAGResultCount int

	// Metrics is optional Prometheus instrumentation; nil disables it.
	Metrics *Metrics

	// MaxCriticalErrors bounds how many critical errors the scheduler
	// tolerates across a Run before it stops with an error, matching
	// cmd/sentinel's exit-code-2 policy.
	MaxCriticalErrors int

	stages map[Stage]func(context.Context, *UnifiedState) (stageResult, error)

	criticalCount int
}

// NewScheduler wires a Scheduler around state and its collaborators. Any
// collaborator may be nil; stages that depend on a nil collaborator
// degrade to a no-op pass-through (useful for tests exercising routing in
// isolation).
func NewScheduler(state *UnifiedState, cp *store.Checkpointer, gate *ratelimit.Gate, retry *ratelimit.RetryHandler, analyzer *causal.Analyzer, poster Poster, emitter emit.Emitter) *Scheduler {
	s := &Scheduler{
		State:             state,
		Checkpointer:      cp,
		Gate:              gate,
		Retry:             retry,
		Analyzer:          analyzer,
		Poster:            poster,
		Emitter:           emitter,
		PostEndpoint:      "social.post",
		MaxCriticalErrors: 3,
	}
	s.stages = map[Stage]func(context.Context, *UnifiedState) (stageResult, error){
		Monitor:       s.monitor,
		RAGContext:    s.ragContext,
		PatternDetect: s.patternDetect,
		Assess:        s.assess,
		CausalMatch:   s.causalMatch,
		Narrate:       s.narrate,
		Queue:         s.queue,
		Post:          s.post,
		Interact:      s.interact,
		Evolve:        s.evolve,
		Error:         s.errorStage,
	}
	return s
}

// Run drives the state machine from state.CurrentStage until it reaches
// END, or ctx is canceled, or MaxCriticalErrors is exceeded.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.State.CurrentStage == End {
			return nil
		}

		result, err := s.step(ctx)
		if err != nil {
			return err
		}
		if s.criticalCount > s.MaxCriticalErrors {
			return fmt.Errorf("engine: exceeded %d critical errors", s.MaxCriticalErrors)
		}
		_ = result
	}
}

// step executes exactly one stage, implementing the staged-copy-then-swap
// isolation model: the stage runs against a Snapshot, and only a
// successful stage return is committed back into s.State. Fields the
// Snapshot shares rather than copies (Graph, the outbound queues,
// CurrentContext) are not rolled back when a stage fails.
func (s *Scheduler) step(ctx context.Context) (stageResult, error) {
	stage := s.State.CurrentStage
	fn, ok := s.stages[stage]
	if !ok {
		// Unknown or terminal stage: treat as END.
		s.State.CurrentStage = End
		return stageResult{next: End}, nil
	}

	s.emit(stage, "stage_start", nil)
	started := time.Now()

	snap := s.State.Snapshot()
	result, err := s.runStage(ctx, fn, snap)
	if err != nil {
		critical := isCritical(err)
		s.State.AppendError(stage, err, critical)
		if critical {
			s.criticalCount++
			s.Metrics.incCritical(s.State.SessionID, stage)
		}
		s.Metrics.recordStage(s.State.SessionID, stage, time.Since(started), "error")
		s.emit(stage, "stage_error", map[string]interface{}{"error": err.Error(), "critical": critical})

		s.State.mu.Lock()
		s.State.CurrentStage = Error
		s.State.NextStage = Error
		s.State.mu.Unlock()
		return stageResult{next: Error}, nil
	}
	s.Metrics.recordStage(s.State.SessionID, stage, time.Since(started), "success")
	s.Metrics.setQueueDepth(s.State.SessionID, "post", s.State.PostQueue.Len())
	s.Metrics.setQueueDepth(s.State.SessionID, "interaction", s.State.InteractionQueue.PendingLen())

	snap.CurrentStage = result.next
	snap.NextStage = result.next
	snap.CheckpointNeeded = result.checkpointNeeded
	s.State.CommitFrom(snap)

	s.State.mu.Lock()
	s.State.CurrentStage = result.next
	s.State.Step++
	step := s.State.Step
	s.State.mu.Unlock()

	s.emit(stage, "stage_end", map[string]interface{}{"next_stage": string(result.next)})

	if result.checkpointNeeded && s.Checkpointer != nil {
		if err := s.checkpoint(ctx, step); err != nil {
			s.emit(stage, "checkpoint_failed", map[string]interface{}{"error": err.Error()})
		} else {
			s.emit(stage, "checkpoint_saved", map[string]interface{}{"checkpoint_step": step})
		}
	}

	return result, nil
}

// runStage recovers a panicking stage function into an error, so a single
// stage's bug degrades to a logged, routed error rather than crashing the
// whole scheduler.
func (s *Scheduler) runStage(ctx context.Context, fn func(context.Context, *UnifiedState) (stageResult, error), snap *UnifiedState) (result stageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: stage panic: %v", r)
		}
	}()
	return fn(ctx, snap)
}

func (s *Scheduler) checkpoint(ctx context.Context, step int) error {
	s.State.mu.Lock()
	raw, err := json.Marshal(s.State)
	s.State.mu.Unlock()
	if err != nil {
		return fmt.Errorf("engine: marshal state: %w", err)
	}
	return s.Checkpointer.Persist(ctx, step, raw)
}

func (s *Scheduler) emit(stage Stage, msg string, meta map[string]interface{}) {
	if s.Emitter == nil {
		return
	}
	s.Emitter.Emit(emit.Event{
		RunID: s.State.SessionID,
		Step:  s.State.Step,
		Stage: string(stage),
		Msg:   msg,
		Meta:  meta,
	})
}

// isCritical classifies an error per the scheduler's propagation policy:
// Fatal and InvalidInput are always critical (they indicate the scheduler
// cannot make progress, or that a stage was given malformed input it
// cannot recover from); Budget means a RetryHandler gave up, which is
// critical for the op but not fatal to the run; everything else
// (RateLimited, Transient, NotFound, Conflict, AuthFailed) is routed back
// to MONITOR without halting the run.
func isCritical(err error) bool {
	e, ok := errs.As(err)
	if !ok {
		return true
	}
	switch e.Kind {
	case errs.Fatal, errs.InvalidInput:
		return true
	default:
		return false
	}
}

// --- stage functions ---

func (s *Scheduler) monitor(ctx context.Context, st *UnifiedState) (stageResult, error) {
	now := time.Now().UTC()

	if s.MarketCollector != nil {
		events, err := s.MarketCollector.Poll(ctx, now)
		if err != nil {
			return stageResult{}, errs.Wrap(errs.Transient, err, "market collector poll failed")
		}
		st.AppendMarketEvents(events)
	}

	if s.SocialCollector != nil {
		events, err := s.SocialCollector.Poll(ctx, now)
		if err != nil {
			return stageResult{}, errs.Wrap(errs.Transient, err, "social collector poll failed")
		}
		st.AppendSocialEvents(events)
		ingestSocialNarratives(st.Graph, events)
	}

	if s.NewsCollector != nil {
		timeBound := s.NewsTimeBound
		if timeBound <= 0 {
			timeBound = time.Hour
		}
		events, err := s.NewsCollector.Poll(ctx, now, s.NewsQuery, timeBound)
		if err != nil {
			return stageResult{}, errs.Wrap(errs.Transient, err, "news collector poll failed")
		}
		st.AppendNewsEvents(events)
		ingestNewsTopics(st.Graph, events)
	}

	if s.VideoCollector != nil && len(s.PendingVideoIDs) > 0 {
		videoID := s.PendingVideoIDs[0]
		s.PendingVideoIDs = s.PendingVideoIDs[1:]
		result, err := s.VideoCollector.Collect(ctx, videoID)
		if err != nil {
			return stageResult{}, errs.Wrap(errs.Transient, err, "video collector failed")
		}
		ingestVideoEntities(st.Graph, result)
	}

	return stageResult{next: RAGContext, checkpointNeeded: true}, nil
}

func (s *Scheduler) ragContext(ctx context.Context, st *UnifiedState) (stageResult, error) {
	if s.VectorMemory == nil {
		return stageResult{next: PatternDetect}, nil
	}
	query := ragQueryText(st)
	if query == "" {
		return stageResult{next: PatternDetect}, nil
	}

	n := s.RAGResultCount
	if n <= 0 {
		n = 5
	}
	results, err := s.VectorMemory.SemanticSearch(ctx, query, n)
	if err != nil {
		return stageResult{}, errs.Wrap(errs.Transient, err, "semantic search failed")
	}

	if st.CurrentContext == nil {
		st.CurrentContext = make(map[string]interface{})
	}
	recalled := make([]string, 0, len(results))
	for _, r := range results {
		if rec, ok := st.Memory.LongTerm[r.Record.Key]; ok {
			recalled = append(recalled, rec.Content)
			continue
		}
		if text, ok := r.Record.Value.(string); ok {
			recalled = append(recalled, text)
		}
	}
	st.CurrentContext["rag_context"] = recalled
	return stageResult{next: PatternDetect}, nil
}

// ragQueryText picks the most recently collected item's text as the
// semantic-search query, preferring news over social since news titles
// carry more topic signal per word.
func ragQueryText(st *UnifiedState) string {
	if n := len(st.NewsEvents); n > 0 {
		return st.NewsEvents[n-1].Title
	}
	if n := len(st.SocialEvents); n > 0 {
		return st.SocialEvents[n-1].Content
	}
	return ""
}

// patternDetect runs every pattern detector (C7) against the live
// knowledge graph and sorts the results into the three source buckets:
// news-sourced topic cycles and repetition go to NewsPatterns, social
// narratives and coordinated/emotional shifts go to SocialPatterns, and
// claim repetition (sourced mostly from news but cross-cutting in
// practice) rounds out MarketPatterns as the signal most relevant to
// tradable narratives.
func (s *Scheduler) patternDetect(ctx context.Context, st *UnifiedState) (stageResult, error) {
	st.NewsPatterns = append(st.NewsPatterns, pattern.DetectTopicCycles(st.Graph, time.Now().UTC(), pattern.DefaultTimeframe)...)
	st.NewsPatterns = append(st.NewsPatterns, pattern.DetectNarrativeRepetition(st.Graph, time.Now().UTC(), pattern.DefaultTimeframe)...)

	st.SocialPatterns = append(st.SocialPatterns, pattern.DetectDominantNarratives(st.Graph)...)
	st.SocialPatterns = append(st.SocialPatterns, pattern.DetectCoordinatedShifts(st.Graph, MinPatternConfidence)...)
	st.SocialPatterns = append(st.SocialPatterns, pattern.DetectEmotionalEscalation(st.Graph, time.Now().UTC(), pattern.DefaultTimeframe)...)

	st.MarketPatterns = append(st.MarketPatterns, pattern.DetectRepeatedClaims(st.Graph)...)

	total := len(st.MarketPatterns) + len(st.SocialPatterns) + len(st.NewsPatterns)
	if total > 0 {
		return stageResult{next: Assess, checkpointNeeded: true}, nil
	}
	return stageResult{next: Monitor}, nil
}

// MinPatternConfidence is the floor DetectCoordinatedShifts applies before
// a coordinated-shift candidate is reported as a Pattern.
const MinPatternConfidence = 0.5

func (s *Scheduler) assess(ctx context.Context, st *UnifiedState) (stageResult, error) {
	sig := Significance(
		len(st.MarketEvents), len(st.SocialEvents), len(st.NewsEvents),
		len(st.MarketPatterns), len(st.SocialPatterns), len(st.NewsPatterns),
		len(st.Correlations),
	)
	st.Assessment.Significance = sig
	st.Assessment.ResponseType = SelectResponseType(sig)

	if sig > SignificanceNarrateThreshold {
		return stageResult{next: CausalMatch, checkpointNeeded: true}, nil
	}
	return stageResult{next: End}, nil
}

func (s *Scheduler) causalMatch(ctx context.Context, st *UnifiedState) (stageResult, error) {
	if s.Analyzer == nil {
		return stageResult{next: Narrate}, nil
	}

	current := causal.CurrentEvent{
		Description: patternSummary(st),
		Category:    causal.Crypto,
		Scope:       causal.Regional,
		Timestamp:   time.Now().UTC(),
	}
	analysis, err := s.Analyzer.Analyze(ctx, current)
	if err != nil {
		return stageResult{}, errs.Wrap(errs.Transient, err, "causal match failed")
	}
	st.Assessment.Analysis = analysis
	return stageResult{next: Narrate}, nil
}

func patternSummary(st *UnifiedState) string {
	for _, p := range st.NewsPatterns {
		return p.PatternType
	}
	for _, p := range st.SocialPatterns {
		return p.PatternType
	}
	for _, p := range st.MarketPatterns {
		return p.PatternType
	}
	return "unclassified"
}

func (s *Scheduler) narrate(ctx context.Context, st *UnifiedState) (stageResult, error) {
	content := buildNarrative(st)

	switch st.Assessment.ResponseType {
	case ThreadAnalysis:
		segments := SplitThread(content, MaxThreadSegmentLen)
		var replyTo string
		for i, seg := range segments {
			id := fmt.Sprintf("%s-thread-%d", st.SessionID, st.Step*1000+i)
			post := outbound.QueuedPost{
				ID:        id,
				Content:   seg,
				Priority:  threadPriority(st.Assessment.Significance),
				ReplyToID: replyTo,
				CreatedAt: time.Now().UTC(),
			}
			if !st.PostQueue.Add(post) {
				s.dropForBackpressure(st, post.ID)
			}
			replyTo = id
		}
	default:
		post := outbound.QueuedPost{
			ID:        fmt.Sprintf("%s-post-%d", st.SessionID, st.Step),
			Content:   content,
			Priority:  threadPriority(st.Assessment.Significance),
			CreatedAt: time.Now().UTC(),
		}
		if !st.PostQueue.Add(post) {
			s.dropForBackpressure(st, post.ID)
		}
	}

	return stageResult{next: Queue, checkpointNeeded: true}, nil
}

// dropForBackpressure records a DroppedDueToBackpressure outcome for a post
// that postQueue refused because it is at its configured cap, rather than
// blocking NARRATE.
func (s *Scheduler) dropForBackpressure(st *UnifiedState, postID string) {
	err := errs.New(errs.Backpressure, "DroppedDueToBackpressure: post %s dropped, queue at capacity", postID)
	st.AppendError(Narrate, err, false)
	s.emit(Narrate, "post_dropped_backpressure", map[string]interface{}{"post_id": postID})
}

func threadPriority(significance float64) int {
	return int(significance * 100)
}

func buildNarrative(st *UnifiedState) string {
	if len(st.Assessment.Analysis.Warnings) > 0 {
		return st.Assessment.Analysis.Warnings[0]
	}
	return fmt.Sprintf("Significance %.2f: %s", st.Assessment.Significance, patternSummary(st))
}

func (s *Scheduler) queue(ctx context.Context, st *UnifiedState) (stageResult, error) {
	if st.PostQueue.Len() == 0 {
		return stageResult{next: End}, nil
	}

	if s.Gate != nil {
		decision := s.Gate.Acquire(s.PostEndpoint, time.Now().UTC())
		if decision.Decision != ratelimit.Grant {
			return stageResult{next: Queue}, nil
		}
	}
	return stageResult{next: Post}, nil
}

func (s *Scheduler) post(ctx context.Context, st *UnifiedState) (stageResult, error) {
	post, ok := st.PostQueue.Pop()
	if !ok {
		return stageResult{next: End}, nil
	}

	if s.Poster == nil {
		return stageResult{next: Interact, checkpointNeeded: true}, nil
	}

	op := ratelimit.OpKey{Stage: string(Post), Node: post.ID}
	err := s.Poster.Publish(ctx, post)
	if err == nil {
		if s.Retry != nil {
			s.Retry.Reset(op)
		}
		return stageResult{next: Interact, checkpointNeeded: true}, nil
	}

	if s.Retry == nil {
		return stageResult{}, errs.Wrap(errs.Transient, err, "post publish failed")
	}
	retry, _, rerr := s.Retry.ShouldRetry(op, err)
	if !retry {
		if rerr != nil {
			return stageResult{}, rerr
		}
		return stageResult{}, errs.Wrap(errs.Transient, err, "post publish failed")
	}
	if !st.PostQueue.Add(post) {
		s.dropForBackpressure(st, post.ID)
		return stageResult{next: End}, nil
	}
	s.Metrics.incRetry(s.State.SessionID, Post, "transient")
	return stageResult{next: Queue}, nil
}

func (s *Scheduler) interact(ctx context.Context, st *UnifiedState) (stageResult, error) {
	st.InteractionQueue.RecoverStuck(time.Now().UTC(), InteractionStaleAfter)
	return stageResult{next: Evolve}, nil
}

// evolve folds this run's assessment into the evolution metrics (EMA per
// §EvolutionMetrics) and writes a summary of the step into long-term
// memory, indexing it in VectorMemory when one is configured so a later
// RAG_CONTEXT can recall it.
func (s *Scheduler) evolve(ctx context.Context, st *UnifiedState) (stageResult, error) {
	st.Evolution.UpdatePredictionAccuracy(st.Assessment.Analysis.Confidence)

	if len(st.MarketPatterns)+len(st.SocialPatterns)+len(st.NewsPatterns) > 0 {
		st.Evolution.UpdatePatternConfidence(averagePatternConfidence(st))
	}

	if len(st.Assessment.Analysis.Warnings) > 0 {
		st.Evolution.UpdateNarrativeConsistency(st.Assessment.Significance)
	}

	for _, chain := range st.Assessment.Analysis.MatchedChains {
		st.Evolution.UpdateTemporalConnection(chain.Name, st.Assessment.Analysis.Confidence)
	}

	summary := buildNarrative(st)
	key := fmt.Sprintf("%s-evolve-%d", st.SessionID, st.Step)
	if st.Memory.LongTerm == nil {
		st.Memory.LongTerm = make(map[string]MemoryEntry)
	}
	st.Memory.LongTerm[key] = MemoryEntry{Content: summary, CreatedAt: time.Now().UTC()}

	if s.VectorMemory != nil {
		if err := s.VectorMemory.SetText(ctx, key, summary, "past"); err != nil {
			s.emit(Evolve, "vector_index_failed", map[string]interface{}{"error": err.Error()})
		} else {
			st.Memory.SemanticIndexed = append(st.Memory.SemanticIndexed, key)
		}
	}

	return stageResult{next: End, checkpointNeeded: true}, nil
}

func averagePatternConfidence(st *UnifiedState) float64 {
	var sum float64
	var n int
	for _, p := range st.MarketPatterns {
		sum += p.Confidence
		n++
	}
	for _, p := range st.SocialPatterns {
		sum += p.Confidence
		n++
	}
	for _, p := range st.NewsPatterns {
		sum += p.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// errorStage is ERROR's routing rule: the most recent log entry decides
// whether the run ends here or retries from MONITOR.
func (s *Scheduler) errorStage(ctx context.Context, st *UnifiedState) (stageResult, error) {
	if len(st.ErrorLog) == 0 {
		return stageResult{next: End}, nil
	}
	last := st.ErrorLog[len(st.ErrorLog)-1]
	if last.Critical {
		return stageResult{next: End, checkpointNeeded: true}, nil
	}
	return stageResult{next: Monitor}, nil
}
