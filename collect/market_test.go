package collect

import (
	"context"
	"testing"
	"time"

	"github.com/wyrmwatch/sentinel/ratelimit"
)

type fakeQuoteSource struct {
	quotes  map[string]Quote
	history map[string][]Bar
}

func (f *fakeQuoteSource) PriceNow(ctx context.Context, symbol string) (Quote, error) {
	return f.quotes[symbol], nil
}

func (f *fakeQuoteSource) History(ctx context.Context, symbol string, window time.Duration) ([]Bar, error) {
	return f.history[symbol], nil
}

func TestMarketCollector_EmitsOnLargeChange(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeQuoteSource{
		quotes: map[string]Quote{"BTC": {Price: 110, Volume: 1000, Timestamp: now}},
		history: map[string][]Bar{
			"BTC": {{Timestamp: now.Add(-24 * time.Hour), Price: 100}},
		},
	}
	c := NewMarketCollector(src, ratelimit.New(0), []string{"BTC"}, 0)

	events, err := c.Poll(context.Background(), now)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for 10%% change, got %d", len(events))
	}
	if events[0].Indicators["price_change_24h"] != 0.1 {
		t.Errorf("change = %v, want 0.1", events[0].Indicators["price_change_24h"])
	}
}

func TestMarketCollector_SkipsSmallChange(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeQuoteSource{
		quotes: map[string]Quote{"BTC": {Price: 101, Volume: 1000, Timestamp: now}},
		history: map[string][]Bar{
			"BTC": {{Timestamp: now.Add(-24 * time.Hour), Price: 100}},
		},
	}
	c := NewMarketCollector(src, ratelimit.New(0), []string{"BTC"}, 0)

	events, err := c.Poll(context.Background(), now)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events for 1%% change, got %d", len(events))
	}
}
