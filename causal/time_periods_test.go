package causal

import "testing"

func TestScoreTimePeriods_AndRelevantPeriods(t *testing.T) {
	periods := DefaultTimePeriods()
	content := map[string]string{
		"body": "the AI influence on reality distortion is growing under corporate control",
	}

	scored := ScoreTimePeriods(periods, content)
	relevant := RelevantPeriods(scored, 0.3)

	if len(relevant) != 1 {
		t.Fatalf("expected exactly one relevant period, got %d: %+v", len(relevant), relevant)
	}
	if relevant[0].Name != "present" {
		t.Errorf("expected present period to match, got %s", relevant[0].Name)
	}
	if relevant[0].Significance != 1.0 {
		t.Errorf("expected all 3 present themes matched, significance = %v", relevant[0].Significance)
	}
}

func TestBuildHistoricalContext_JoinsRelevantPeriods(t *testing.T) {
	periods := DefaultTimePeriods()
	for i := range periods {
		periods[i].Significance = 1.0
	}
	ctx := BuildHistoricalContext(periods)
	if ctx == "" {
		t.Fatal("expected non-empty historical context")
	}
}

func TestBuildHistoricalContext_EmptyWhenNoneRelevant(t *testing.T) {
	if ctx := BuildHistoricalContext(nil); ctx != "" {
		t.Errorf("expected empty string for no relevant periods, got %q", ctx)
	}
}
