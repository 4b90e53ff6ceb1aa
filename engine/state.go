// Package engine implements the WorkflowScheduler (C10): the UnifiedState
// aggregate, the stage state machine, significance/response-type scoring,
// and the error-routing policy every other component's errors flow
// through.
package engine

import (
	"sync"
	"time"

	"github.com/wyrmwatch/sentinel/causal"
	"github.com/wyrmwatch/sentinel/collect"
	"github.com/wyrmwatch/sentinel/kgraph"
	"github.com/wyrmwatch/sentinel/outbound"
	"github.com/wyrmwatch/sentinel/pattern"
)

// Stage is one node in the scheduler's state machine.
type Stage string

const (
	Monitor       Stage = "MONITOR"
	RAGContext    Stage = "RAG_CONTEXT"
	PatternDetect Stage = "PATTERN_DETECT"
	Assess        Stage = "ASSESS"
	CausalMatch   Stage = "CAUSAL_MATCH"
	Narrate       Stage = "NARRATE"
	Queue         Stage = "QUEUE"
	Post          Stage = "POST"
	Interact      Stage = "INTERACT"
	Evolve        Stage = "EVOLVE"
	Error         Stage = "ERROR"
	End           Stage = "END"
)

// ErrorLogEntry is one append-only record of a stage failure.
type ErrorLogEntry struct {
	Err       string
	Timestamp time.Time
	Stage     Stage
	Critical  bool
}

// Assessment is ASSESS's output: the significance score and the analysis
// driving it.
type Assessment struct {
	Significance float64
	ResponseType ResponseType
	Analysis     causal.Analysis
}

// ResponseType is NARRATE's chosen artifact shape.
type ResponseType string

const (
	ThreadAnalysis   ResponseType = "THREAD_ANALYSIS"
	HistoricalBridge ResponseType = "HISTORICAL_BRIDGE"
	QuickTake        ResponseType = "QUICK_TAKE"
)

// evolutionMetricDefault is the neutral starting value for every scalar
// EvolutionMetrics tracks, and emaWeight is the smoothing factor EVOLVE
// applies to each new observation.
const (
	evolutionMetricDefault = 0.5
	emaWeight              = 0.2
)

// EvolutionMetrics is the run's self-assessment of how well its own
// inferences are holding up over time: how confidently patterns match
// (PatternConfidence), how well NARRATE's output agrees with the graph
// (NarrativeConsistency), how often CAUSAL_MATCH's predictions are borne
// out (PredictionAccuracy), and a per-chain confidence history
// (TemporalConnections). EVOLVE updates each field with an exponential
// moving average rather than overwriting it, so a single noisy step
// can't swing the run's self-assessment.
type EvolutionMetrics struct {
	PatternConfidence    float64
	NarrativeConsistency float64
	PredictionAccuracy   float64
	TemporalConnections  map[string]float64
}

// NewEvolutionMetrics returns metrics at their neutral defaults.
func NewEvolutionMetrics() EvolutionMetrics {
	return EvolutionMetrics{
		PatternConfidence:    evolutionMetricDefault,
		NarrativeConsistency: evolutionMetricDefault,
		PredictionAccuracy:   evolutionMetricDefault,
		TemporalConnections:  make(map[string]float64),
	}
}

// UpdatePatternConfidence, UpdateNarrativeConsistency and
// UpdatePredictionAccuracy fold a new observation into the running EMA.
func (m *EvolutionMetrics) UpdatePatternConfidence(observed float64) {
	m.PatternConfidence = ema(m.PatternConfidence, observed)
}

func (m *EvolutionMetrics) UpdateNarrativeConsistency(observed float64) {
	m.NarrativeConsistency = ema(m.NarrativeConsistency, observed)
}

func (m *EvolutionMetrics) UpdatePredictionAccuracy(observed float64) {
	m.PredictionAccuracy = ema(m.PredictionAccuracy, observed)
}

// UpdateTemporalConnection folds observed into chain's running confidence,
// or sets it directly if chain has not been observed before.
func (m *EvolutionMetrics) UpdateTemporalConnection(chain string, observed float64) {
	if m.TemporalConnections == nil {
		m.TemporalConnections = make(map[string]float64)
	}
	if prior, ok := m.TemporalConnections[chain]; ok {
		m.TemporalConnections[chain] = ema(prior, observed)
		return
	}
	m.TemporalConnections[chain] = observed
}

func ema(prior, observed float64) float64 {
	return (1-emaWeight)*prior + emaWeight*observed
}

// MemoryEntry is one short- or long-term memory record: a point-in-time
// summary and when it was written. The map key it is stored under doubles
// as its semantic-index key when it is indexed.
type MemoryEntry struct {
	Content   string
	CreatedAt time.Time
}

// Memory holds the run's short-term and long-term recall, mirroring the
// original system's short-term map / long-term map / semantic index
// trio. The semantic index itself (a *memory.VectorStore) is not
// serializable state and lives on Scheduler instead; Memory only carries
// the two JSON-safe maps plus the keys written to the index, so a restored
// run can re-query it.
type Memory struct {
	ShortTerm       map[string]MemoryEntry
	LongTerm        map[string]MemoryEntry
	SemanticIndexed []string
}

// NewMemory returns an empty Memory.
func NewMemory() Memory {
	return Memory{ShortTerm: make(map[string]MemoryEntry), LongTerm: make(map[string]MemoryEntry)}
}

// UnifiedState is the single root aggregate every stage reads and writes.
type UnifiedState struct {
	mu sync.Mutex

	SessionID         string
	Timestamp         time.Time
	CurrentStage      Stage
	NextStage         Stage
	CheckpointNeeded  bool
	Step              int

	Graph *kgraph.Graph

	MarketEvents []collect.MarketEvent
	SocialEvents []collect.SocialEvent
	NewsEvents   []collect.NewsEvent

	MarketPatterns []pattern.Pattern
	SocialPatterns []pattern.Pattern
	NewsPatterns   []pattern.Pattern
	Correlations   []interface{}

	Assessment Assessment

	PostQueue        *outbound.PostQueue
	InteractionQueue *outbound.InteractionQueue

	Evolution EvolutionMetrics
	Memory    Memory

	CurrentContext map[string]interface{}
	ErrorLog       []ErrorLogEntry
}

// NewUnifiedState returns a freshly initialized state for sessionID,
// starting at MONITOR.
func NewUnifiedState(sessionID string) *UnifiedState {
	return &UnifiedState{
		SessionID:        sessionID,
		Timestamp:        time.Now().UTC(),
		CurrentStage:     Monitor,
		Graph:            kgraph.New(),
		PostQueue:        outbound.NewPostQueue(),
		InteractionQueue: outbound.NewInteractionQueue(),
		Evolution:        NewEvolutionMetrics(),
		Memory:           NewMemory(),
		CurrentContext:   make(map[string]interface{}),
	}
}

// AppendError records a stage failure to the error log under the state's
// mutex, per the shared-resource policy.
func (s *UnifiedState) AppendError(stage Stage, err error, critical bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorLog = append(s.ErrorLog, ErrorLogEntry{
		Err:       err.Error(),
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Critical:  critical,
	})
}

// AppendMarketEvents appends under the state's mutex, the only mutation
// path Collectors are allowed.
func (s *UnifiedState) AppendMarketEvents(events []collect.MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarketEvents = append(s.MarketEvents, events...)
}

func (s *UnifiedState) AppendSocialEvents(events []collect.SocialEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SocialEvents = append(s.SocialEvents, events...)
}

func (s *UnifiedState) AppendNewsEvents(events []collect.NewsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NewsEvents = append(s.NewsEvents, events...)
}

// Snapshot returns a copy of s for a stage to mutate and swap back on
// success, per §7's staged-copy-then-swap isolation. The event, pattern,
// error-log, evolution and memory collections are copied; Graph,
// PostQueue, InteractionQueue, CurrentContext and Correlations are shared
// with s, so writes a stage makes to them stay in place even when that
// stage fails.
func (s *UnifiedState) Snapshot() *UnifiedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *s
	cp.MarketEvents = append([]collect.MarketEvent{}, s.MarketEvents...)
	cp.SocialEvents = append([]collect.SocialEvent{}, s.SocialEvents...)
	cp.NewsEvents = append([]collect.NewsEvent{}, s.NewsEvents...)
	cp.MarketPatterns = append([]pattern.Pattern{}, s.MarketPatterns...)
	cp.SocialPatterns = append([]pattern.Pattern{}, s.SocialPatterns...)
	cp.NewsPatterns = append([]pattern.Pattern{}, s.NewsPatterns...)
	cp.ErrorLog = append([]ErrorLogEntry{}, s.ErrorLog...)
	cp.Evolution.TemporalConnections = copyFloatMap(s.Evolution.TemporalConnections)
	cp.Memory.ShortTerm = copyEntryMap(s.Memory.ShortTerm)
	cp.Memory.LongTerm = copyEntryMap(s.Memory.LongTerm)
	cp.Memory.SemanticIndexed = append([]string{}, s.Memory.SemanticIndexed...)
	return &cp
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyEntryMap(m map[string]MemoryEntry) map[string]MemoryEntry {
	out := make(map[string]MemoryEntry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CommitFrom copies every mutable field from snapshot back into s, the
// "swap" half of staged-copy-then-swap: called only once a stage function
// has returned without error.
func (s *UnifiedState) CommitFrom(snapshot *UnifiedState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CurrentStage = snapshot.CurrentStage
	s.NextStage = snapshot.NextStage
	s.CheckpointNeeded = snapshot.CheckpointNeeded
	s.MarketEvents = snapshot.MarketEvents
	s.SocialEvents = snapshot.SocialEvents
	s.NewsEvents = snapshot.NewsEvents
	s.MarketPatterns = snapshot.MarketPatterns
	s.SocialPatterns = snapshot.SocialPatterns
	s.NewsPatterns = snapshot.NewsPatterns
	s.Correlations = snapshot.Correlations
	s.Assessment = snapshot.Assessment
	s.CurrentContext = snapshot.CurrentContext
	s.ErrorLog = snapshot.ErrorLog
	s.Evolution = snapshot.Evolution
	s.Memory = snapshot.Memory
}
