// Package causal implements the CausalAnalyzer (C8): matching a current
// event against a library of historical CausalEvents and TimelineChains,
// and producing an immutable CausalAnalysis with confidence blended from
// historical parallels and an LLM-derived warnings/strategies signal.
package causal

import "time"

// Category is the fixed CausalEvent category vocabulary.
type Category string

const (
	Crypto        Category = "crypto"
	Financial     Category = "financial"
	Tech          Category = "tech"
	Social        Category = "social"
	Political     Category = "political"
	War           Category = "war"
	Environmental Category = "environmental"
	Corporate     Category = "corporate"
)

// Scope is the fixed CausalEvent blast-radius vocabulary.
type Scope string

const (
	Local     Scope = "local"
	Regional  Scope = "regional"
	National  Scope = "national"
	Global    Scope = "global"
	Systemic  Scope = "systemic"
)

// Event is a historical causal event in the library.
type Event struct {
	ID          string
	Timestamp   time.Time
	Description string
	Category    Category
	Scope       Scope
	Causes      []string
	Effects     []string
	Importance  float64
	Confidence  float64
}

// TimelineChain is a named, ordered sequence of Events culminating in a
// stated outcome, with derived warning signs and prevention points.
type TimelineChain struct {
	ID              string
	Name            string
	Description     string
	Events          []Event
	FinalOutcome    string
	PreventionPoints []time.Time
	WarningSigns    []string
	Categories      map[Category]struct{}
}

// CurrentEvent is the input the analyzer matches against the library.
type CurrentEvent struct {
	Description string
	Category    Category
	Scope       Scope
	Timestamp   time.Time
}

// Analysis is the immutable result of analyzing a CurrentEvent.
type Analysis struct {
	CurrentEvent         CurrentEvent
	Timestamp            time.Time
	HistoricalParallels  []Event
	MatchedChains        []TimelineChain
	Warnings             []string
	PreventionStrategies []string
	Confidence           float64
}
