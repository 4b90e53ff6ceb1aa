package pattern

import "strings"

// PatternIndicator is one propaganda-span word list with its scoring
// priority and minimum match count.
type PatternIndicator struct {
	Words           []string
	Priority        float64
	RequiredMatches int
}

// PatternIndicators is the fixed classification table: category -> word
// list, priority multiplier, and minimum match count.
var PatternIndicators = map[string]PatternIndicator{
	"fear_tactics": {
		Words: []string{
			"fear", "panic", "threat", "danger", "crisis",
			"emergency", "catastrophe", "disaster", "pandemic",
			"experimental", "risk", "unsafe",
		},
		Priority:        3,
		RequiredMatches: 1,
	},
	"economic_manipulation": {
		Words: []string{
			"inflation", "economy", "economic", "transitory",
			"market", "financial", "cost", "price", "currency",
			"dollar", "money", "recession", "wages", "markets",
			"prices", "costs", "economic indicators",
		},
		Priority:        2,
		RequiredMatches: 2,
	},
	"soft_propaganda": {
		Words: []string{
			"manipulation", "propaganda", "narrative",
			"mainstream media", "corporate media", "deep state",
			"legacy media", "media", "coverage",
		},
		Priority:        1,
		RequiredMatches: 1,
	},
}

// TranscriptSegment is one chunk of a video transcript.
type TranscriptSegment struct {
	Text     string
	Start    float64
	Duration float64
}

// classifySegment scores every pattern type against text and returns the
// highest-scoring type meeting its required-matches floor, or "" if none
// qualify.
func classifySegment(text string) (string, float64) {
	lower := strings.ToLower(text)

	bestType := ""
	bestScore := 0.0
	for patternType, info := range PatternIndicators {
		matches := 0
		for _, word := range info.Words {
			if strings.Contains(lower, strings.ToLower(word)) {
				matches++
			}
		}
		if matches < info.RequiredMatches {
			continue
		}
		score := (float64(matches) / float64(len(info.Words))) * info.Priority
		if score > bestScore {
			bestScore = score
			bestType = patternType
		}
	}

	if bestType == "" {
		return "", 0
	}
	return bestType, clamp(bestScore, 0, 1)
}

// ClassifySpans walks a transcript's segments, classifying each, and merges
// contiguous segments sharing a pattern type into a single Pattern spanning
// their combined time range.
func ClassifySpans(segments []TranscriptSegment) []Pattern {
	var patterns []Pattern

	var currentType string
	var currentSegments []TranscriptSegment
	var currentScores []float64

	flush := func() {
		if len(currentSegments) == 0 {
			return
		}
		var texts []string
		sum := 0.0
		for i, s := range currentSegments {
			texts = append(texts, s.Text)
			sum += currentScores[i]
		}
		first := currentSegments[0]
		last := currentSegments[len(currentSegments)-1]
		patterns = append(patterns, Pattern{
			PatternType:     "manipulation_pattern",
			PatternCategory: currentType,
			Description:     strings.Join(texts, " "),
			TimestampStart:  int(first.Start),
			TimestampEnd:    int(last.Start + last.Duration),
			Confidence:      clamp(sum/float64(len(currentScores)), 0, 1),
		})
		currentSegments = nil
		currentScores = nil
	}

	for _, seg := range segments {
		patternType, score := classifySegment(seg.Text)
		if patternType == "" {
			flush()
			currentType = ""
			continue
		}
		if currentType != "" && patternType != currentType {
			flush()
		}
		currentType = patternType
		currentSegments = append(currentSegments, seg)
		currentScores = append(currentScores, score)
	}
	flush()

	return patterns
}
