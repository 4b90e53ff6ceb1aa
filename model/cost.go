package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ModelPricing is the USD cost of one million input/output tokens for a model.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultModelPricing covers the providers wired under model/{anthropic,openai,google}.
// Prices are USD per 1M tokens, current as of 2025-01-01; update as providers adjust.
var defaultModelPricing = map[string]ModelPricing{
	"gpt-4o":                 {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-2024-08-06":      {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":            {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":            {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-4-turbo-2024-04-09": {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":          {InputPer1M: 0.50, OutputPer1M: 1.50},

	"claude-sonnet-4-5-20250929": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-sonnet":          {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-opus":              {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-sonnet-20240229":   {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-sonnet":            {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"claude-3-haiku":             {InputPer1M: 0.25, OutputPer1M: 1.25},

	"gemini-1.5-pro":       {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-pro-001":   {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":     {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-1.5-flash-001": {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-1.0-pro":       {InputPer1M: 0.50, OutputPer1M: 1.50},
}

// LLMCall is one recorded invocation of a ChatModel, with its USD cost.
type LLMCall struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Timestamp    time.Time
	Stage        string // engine.Stage that triggered the call, e.g. "causal_match"
}

// CostTracker accumulates the USD cost of LLM calls made by a CostedLLM over
// a run, attributed per model and per calling stage. It never blocks or
// rejects a call on an unknown model; unpriced models are recorded at zero
// cost so tracking failures never affect the scheduler.
type CostTracker struct {
	RunID    string
	Currency string

	mu         sync.RWMutex
	pricing    map[string]ModelPricing
	calls      []LLMCall
	totalCost  float64
	modelCosts map[string]float64
	inTokens   int64
	outTokens  int64
	enabled    bool
}

// NewCostTracker returns a tracker seeded with the default pricing table.
func NewCostTracker(runID, currency string) *CostTracker {
	return &CostTracker{
		RunID:      runID,
		Currency:   currency,
		pricing:    defaultModelPricing,
		calls:      make([]LLMCall, 0, 16),
		modelCosts: make(map[string]float64),
		enabled:    true,
	}
}

// RecordCall prices one LLM call and folds it into the running totals.
func (ct *CostTracker) RecordCall(modelName string, usage Usage, stage string) {
	if ct == nil || !ct.enabled {
		return
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()

	pricing := ct.pricing[modelName] // zero value if unknown: records at $0
	cost := (float64(usage.InputTokens)/1_000_000.0)*pricing.InputPer1M +
		(float64(usage.OutputTokens)/1_000_000.0)*pricing.OutputPer1M

	ct.calls = append(ct.calls, LLMCall{
		Model:        modelName,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      cost,
		Timestamp:    time.Now(),
		Stage:        stage,
	})
	ct.totalCost += cost
	ct.modelCosts[modelName] += cost
	ct.inTokens += int64(usage.InputTokens)
	ct.outTokens += int64(usage.OutputTokens)
}

func (ct *CostTracker) TotalCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.totalCost
}

func (ct *CostTracker) CostByModel() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make(map[string]float64, len(ct.modelCosts))
	for m, c := range ct.modelCosts {
		out[m] = c
	}
	return out
}

func (ct *CostTracker) CallHistory() []LLMCall {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make([]LLMCall, len(ct.calls))
	copy(out, ct.calls)
	return out
}

func (ct *CostTracker) TokenUsage() (inputTokens, outputTokens int64) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.inTokens, ct.outTokens
}

// SetCustomPricing overrides (or adds) pricing for a model, e.g. for an
// enterprise rate or a model released after defaultModelPricing was written.
func (ct *CostTracker) SetCustomPricing(modelName string, inputPer1M, outputPer1M float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.pricing == nil {
		ct.pricing = make(map[string]ModelPricing)
	} else {
		// copy-on-write so SetCustomPricing never mutates defaultModelPricing
		cp := make(map[string]ModelPricing, len(ct.pricing)+1)
		for k, v := range ct.pricing {
			cp[k] = v
		}
		ct.pricing = cp
	}
	ct.pricing[modelName] = ModelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

func (ct *CostTracker) Disable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = false
}

func (ct *CostTracker) Enable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = true
}

func (ct *CostTracker) String() string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return fmt.Sprintf("CostTracker{RunID: %s, Calls: %d, TotalCost: $%.4f %s}",
		ct.RunID, len(ct.calls), ct.totalCost, ct.Currency)
}

// CostedLLM wraps a ChatModel so every Complete call is priced against
// Tracker. A nil Tracker makes this a plain passthrough.
type CostedLLM struct {
	Model   ChatModel
	Tracker *CostTracker
	Stage   string
}

// named is satisfied by the provider ChatModel implementations under
// model/anthropic, model/openai, and model/google.
type named interface {
	ModelName() string
}

func (c CostedLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	out, err := c.Model.Chat(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	modelName := "unknown"
	if n, ok := c.Model.(named); ok {
		modelName = n.ModelName()
	}
	c.Tracker.RecordCall(modelName, out.Usage, c.Stage)
	return out.Text, nil
}
