package emit

import (
	"context"
	"sync"
)

// BufferedEmitter stores events in memory, organized by RunID, so tests and
// dashboards can query execution history after the fact.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter. Zero-valued fields are
// unfiltered; all set fields combine with AND logic.
type HistoryFilter struct {
	Stage   string
	Msg     string
	MinStep *int
	MaxStep *int
}

// NewBufferedEmitter returns an empty, concurrency-safe BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range events {
		b.events[e.RunID] = append(b.events[e.RunID], e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of all events recorded for runID, in emission order.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns events for runID matching filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events[runID] {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	if result == nil {
		return []Event{}
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.Stage != "" && event.Stage != filter.Stage {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear removes events for runID, or every run if runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}
