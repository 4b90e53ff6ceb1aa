package collect

import "strings"

// SentimentScorer scores free text to a scalar in [-1, 1].
type SentimentScorer interface {
	Score(text string) float64
}

var positiveWords = []string{"bullish", "surge", "gain", "win", "growth", "rally", "breakthrough", "optimistic"}
var negativeWords = []string{"crash", "panic", "loss", "scam", "collapse", "fear", "warning", "manipulation"}

// DefaultSentimentScorer is a deterministic keyword-count heuristic used
// when no richer scorer is configured: (positive - negative) / (positive +
// negative), clamped to [-1, 1].
type DefaultSentimentScorer struct{}

func (DefaultSentimentScorer) Score(text string) float64 {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	score := float64(pos-neg) / float64(pos+neg)
	if score < -1 {
		return -1
	}
	if score > 1 {
		return 1
	}
	return score
}
