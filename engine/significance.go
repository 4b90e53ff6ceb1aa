package engine

// Significance computes ASSESS's gating score from the counts of events,
// patterns, and correlations accumulated so far this cycle. This is the
// sole formula the scheduler consults for thread-generation routing.
func Significance(marketEvents, socialEvents, newsEvents, marketPatterns, socialPatterns, newsPatterns, correlations int) float64 {
	v := 0.3 +
		0.1*float64(marketEvents) +
		0.05*float64(socialEvents) +
		0.15*float64(newsEvents) +
		0.15*float64(marketPatterns) +
		0.1*float64(socialPatterns) +
		0.2*float64(newsPatterns) +
		0.25*float64(correlations)
	if v > 1.0 {
		return 1.0
	}
	return v
}

// SelectResponseType picks NARRATE's artifact shape from significance.
func SelectResponseType(significance float64) ResponseType {
	switch {
	case significance > 0.8:
		return ThreadAnalysis
	case significance > 0.6:
		return HistoricalBridge
	default:
		return QuickTake
	}
}
