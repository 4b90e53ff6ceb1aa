package causal

import (
	"fmt"
	"strings"
)

// TimePeriod is a named historical/narrative era the causal layer can
// connect a current event's themes to, supplementing the core
// historical-parallel matching with a coarser thematic bridge.
type TimePeriod struct {
	Name         string
	StartYear    int
	EndYear      int
	KeyEvents    []string
	Themes       []string
	Significance float64
}

// DefaultTimePeriods mirrors the three eras the narrative layer connects:
// a past media-manipulation period, the present AI/crypto period, and a
// speculative future period.
func DefaultTimePeriods() []TimePeriod {
	return []TimePeriod{
		{
			Name: "past", StartYear: 1992, EndYear: 1992,
			KeyEvents: []string{"Cable news reshaping reality", "Rise of media manipulation", "Early internet emergence"},
			Themes:    []string{"Media control", "Information manipulation", "Technological transition"},
		},
		{
			Name: "present", StartYear: 2024, EndYear: 2024,
			KeyEvents: []string{"AI revolution", "Digital reality manipulation", "Tech oligarchy"},
			Themes:    []string{"AI influence", "Reality distortion", "Corporate control"},
		},
		{
			Name: "future", StartYear: 3030, EndYear: 3030,
			KeyEvents: []string{"Digital dystopia", "Reality as product", "Technological enslavement"},
			Themes:    []string{"Total control", "Lost humanity", "Corporate dominance"},
		},
	}
}

// ScoreTimePeriods scores periods against free-form content fields,
// returning a new slice with Significance set to the fraction of each
// period's themes found (case-insensitively) anywhere in content.
func ScoreTimePeriods(periods []TimePeriod, content map[string]string) []TimePeriod {
	out := make([]TimePeriod, len(periods))
	for i, p := range periods {
		matches := 0
		for _, theme := range p.Themes {
			themeLower := strings.ToLower(theme)
			for _, v := range content {
				if strings.Contains(strings.ToLower(v), themeLower) {
					matches++
					break
				}
			}
		}
		p.Significance = 0
		if len(p.Themes) > 0 && matches > 0 {
			p.Significance = float64(matches) / float64(len(p.Themes))
		}
		out[i] = p
	}
	return out
}

// RelevantPeriods returns every scored period meeting minSignificance
// (default 0.3 when non-positive).
func RelevantPeriods(scored []TimePeriod, minSignificance float64) []TimePeriod {
	if minSignificance <= 0 {
		minSignificance = 0.3
	}
	var out []TimePeriod
	for _, p := range scored {
		if p.Significance >= minSignificance {
			out = append(out, p)
		}
	}
	return out
}

// BuildHistoricalContext renders relevant periods into the narrative's
// bridging sentence, in the order given (DefaultTimePeriods lists them
// oldest to most speculative).
func BuildHistoricalContext(relevant []TimePeriod) string {
	if len(relevant) == 0 {
		return ""
	}
	parts := make([]string, 0, len(relevant))
	for _, p := range relevant {
		parts = append(parts, fmt.Sprintf("%d: %s", p.StartYear, strings.Join(p.KeyEvents, ", ")))
	}
	return strings.Join(parts, " → ")
}
