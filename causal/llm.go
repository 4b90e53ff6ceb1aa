package causal

import (
	"fmt"
	"strings"
)

// buildLLMPrompt renders the current event plus its historical matches
// into the prompt the LLM step analyzes for warning signs and prevention
// strategies.
func buildLLMPrompt(current CurrentEvent, historical []Event, chains []TimelineChain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current event: %s (category=%s, scope=%s)\n", current.Description, current.Category, current.Scope)
	fmt.Fprintf(&b, "Historical parallels: %d\n", len(historical))
	for _, h := range historical {
		fmt.Fprintf(&b, "- %s (%s)\n", h.Description, h.Timestamp.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Matched timeline chains: %d\n", len(chains))
	for _, c := range chains {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.FinalOutcome)
	}
	b.WriteString("List warning signs as lines starting with \"WARNING: \" and prevention strategies as lines starting with \"STRATEGY: \".")
	return b.String()
}

// parseWarningsAndStrategies extracts WARNING:/STRATEGY: prefixed lines
// from the LLM step's free-text reply.
func parseWarningsAndStrategies(text string) ([]string, []string, error) {
	var warnings, strategies []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "WARNING:"):
			warnings = append(warnings, strings.TrimSpace(strings.TrimPrefix(line, "WARNING:")))
		case strings.HasPrefix(line, "STRATEGY:"):
			strategies = append(strategies, strings.TrimSpace(strings.TrimPrefix(line, "STRATEGY:")))
		}
	}
	return warnings, strategies, nil
}
