package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/wyrmwatch/sentinel/ratelimit"
)

// DefaultMarketChangeThreshold is the 24h fractional price-change trigger.
const DefaultMarketChangeThreshold = 0.05

// MarketCollector polls QuoteSource for a fixed watchlist and emits a
// MarketEvent when a symbol's 24h change exceeds the configured threshold.
type MarketCollector struct {
	source    QuoteSource
	gate      *ratelimit.Gate
	watchlist []string
	threshold float64
}

// NewMarketCollector returns a MarketCollector over watchlist. threshold<=0
// uses DefaultMarketChangeThreshold.
func NewMarketCollector(source QuoteSource, gate *ratelimit.Gate, watchlist []string, threshold float64) *MarketCollector {
	if threshold <= 0 {
		threshold = DefaultMarketChangeThreshold
	}
	return &MarketCollector{source: source, gate: gate, watchlist: watchlist, threshold: threshold}
}

// Poll checks every watched symbol at now and returns a MarketEvent for
// each whose 24h change exceeds the threshold.
func (c *MarketCollector) Poll(ctx context.Context, now time.Time) ([]MarketEvent, error) {
	var events []MarketEvent
	for _, symbol := range c.watchlist {
		decision := c.gate.Acquire(fmt.Sprintf("quote:%s", symbol), now)
		if decision.Decision != ratelimit.Grant {
			continue
		}

		quote, err := c.source.PriceNow(ctx, symbol)
		if err != nil {
			return events, fmt.Errorf("collect: price now %s: %w", symbol, err)
		}
		bars, err := c.source.History(ctx, symbol, 24*time.Hour)
		if err != nil {
			return events, fmt.Errorf("collect: history %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			continue
		}

		oldest := bars[0].Price
		if oldest == 0 {
			continue
		}
		change := (quote.Price - oldest) / oldest
		if absFloat(change) <= c.threshold {
			continue
		}

		events = append(events, MarketEvent{
			Symbol: symbol,
			Price:  quote.Price,
			Volume: quote.Volume,
			Indicators: map[string]float64{
				"price_change_24h": change,
			},
			Timestamp: quote.Timestamp.UTC(),
			Metadata: map[string]interface{}{
				"historical_tail": bars,
			},
		})
	}
	return events, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
