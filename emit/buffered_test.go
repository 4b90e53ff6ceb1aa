package emit

import "testing"

func TestBufferedEmitter_GetHistory(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Step: 1, Stage: "MONITOR", Msg: "stage_start"})
	b.Emit(Event{RunID: "run-1", Step: 1, Stage: "MONITOR", Msg: "stage_end"})
	b.Emit(Event{RunID: "run-2", Step: 1, Stage: "MONITOR", Msg: "stage_start"})

	got := b.GetHistory("run-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 events for run-1, got %d", len(got))
	}
	if len(b.GetHistory("missing")) != 0 {
		t.Error("expected empty slice for unknown runID")
	}
}

func TestBufferedEmitter_GetHistoryWithFilter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Step: 1, Stage: "MONITOR", Msg: "stage_start"})
	b.Emit(Event{RunID: "run-1", Step: 2, Stage: "ASSESS", Msg: "stage_start"})
	b.Emit(Event{RunID: "run-1", Step: 2, Stage: "ASSESS", Msg: "error"})

	errs := b.GetHistoryWithFilter("run-1", HistoryFilter{Msg: "error"})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errs))
	}

	min := 2
	stepFiltered := b.GetHistoryWithFilter("run-1", HistoryFilter{MinStep: &min})
	if len(stepFiltered) != 2 {
		t.Fatalf("expected 2 events with step >= 2, got %d", len(stepFiltered))
	}
}

func TestBufferedEmitter_Clear(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Msg: "x"})
	b.Emit(Event{RunID: "run-2", Msg: "x"})

	b.Clear("run-1")
	if len(b.GetHistory("run-1")) != 0 {
		t.Error("expected run-1 cleared")
	}
	if len(b.GetHistory("run-2")) != 1 {
		t.Error("expected run-2 untouched")
	}

	b.Clear("")
	if len(b.GetHistory("run-2")) != 0 {
		t.Error("expected all runs cleared")
	}
}
