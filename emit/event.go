package emit

// Event represents an observability event emitted during a scheduler run.
//
// Events give visibility into pipeline behavior:
//   - Stage entry/exit
//   - Checkpoint writes
//   - Collector activity
//   - Errors routed to the ERROR stage
//
// Events are emitted to an Emitter, which can log them, forward them to a
// tracing backend, or buffer them for test assertions.
type Event struct {
	// RunID identifies the session (thread) that emitted this event.
	RunID string

	// Step is the scheduler's monotonically increasing step counter.
	// Zero for session-level events (start, shutdown).
	Step int

	// Stage identifies which workflow stage emitted this event.
	// Empty for session-level events.
	Stage string

	// Msg is a short, stable event name (e.g. "stage_start", "stage_end",
	// "checkpoint_saved", "pattern_detected", "rate_limited").
	Msg string

	// Meta holds event-specific structured data. Common keys:
	//   - "duration_ms": stage execution duration
	//   - "error": error detail for error-routed events
	//   - "checkpoint_step": step number for checkpoint events
	//   - "pattern_type": detected pattern kind
	Meta map[string]interface{}
}
