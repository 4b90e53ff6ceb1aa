package model

import (
	"context"
	"testing"
)

type fakeNamedModel struct {
	name string
	out  ChatOut
	err  error
}

func (f fakeNamedModel) ModelName() string { return f.name }

func (f fakeNamedModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	return f.out, f.err
}

func TestCostTracker_RecordCall_PricesKnownModel(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.RecordCall("gpt-4o", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, "CAUSAL_MATCH")

	if got, want := ct.TotalCost(), 2.50+10.00; got != want {
		t.Errorf("TotalCost = %v, want %v", got, want)
	}
	in, out := ct.TokenUsage()
	if in != 1_000_000 || out != 1_000_000 {
		t.Errorf("TokenUsage = (%d, %d), want (1000000, 1000000)", in, out)
	}
}

func TestCostTracker_RecordCall_UnknownModelIsZeroCost(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.RecordCall("some-future-model", Usage{InputTokens: 500, OutputTokens: 500}, "NARRATE")

	if got := ct.TotalCost(); got != 0 {
		t.Errorf("TotalCost = %v, want 0 for unpriced model", got)
	}
	if len(ct.CallHistory()) != 1 {
		t.Errorf("expected the unpriced call to still be recorded")
	}
}

func TestCostTracker_DisabledSkipsRecording(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.Disable()
	ct.RecordCall("gpt-4o", Usage{InputTokens: 1000, OutputTokens: 1000}, "NARRATE")

	if len(ct.CallHistory()) != 0 {
		t.Errorf("expected no calls recorded while disabled")
	}

	ct.Enable()
	ct.RecordCall("gpt-4o", Usage{InputTokens: 1000, OutputTokens: 1000}, "NARRATE")
	if len(ct.CallHistory()) != 1 {
		t.Errorf("expected recording to resume after Enable")
	}
}

func TestCostedLLM_Complete_RecordsAgainstTrackerUsingModelName(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	llm := CostedLLM{
		Model:   fakeNamedModel{name: "gpt-4o-mini", out: ChatOut{Text: "ok", Usage: Usage{InputTokens: 2_000_000, OutputTokens: 1_000_000}}},
		Tracker: ct,
		Stage:   "NARRATE",
	}

	text, err := llm.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "ok" {
		t.Errorf("Complete text = %q, want %q", text, "ok")
	}

	costs := ct.CostByModel()
	if _, ok := costs["gpt-4o-mini"]; !ok {
		t.Errorf("expected gpt-4o-mini attributed in cost breakdown, got %v", costs)
	}
}
