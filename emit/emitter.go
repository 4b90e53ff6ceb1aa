// Package emit provides event emission and observability for the scheduler.
package emit

import "context"

// Emitter receives observability events produced while the scheduler runs.
//
// Implementations should be non-blocking and thread-safe: stage functions
// and collectors may emit concurrently, and a slow or unavailable backend
// must never stall a stage. Emit should never panic; internal failures
// should be swallowed or logged by the implementation itself.
type Emitter interface {
	// Emit sends a single event to the configured backend.
	Emit(event Event)

	// EmitBatch sends multiple events in one call, preserving order.
	// Returns an error only on catastrophic, non-per-event failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until buffered events are delivered, or ctx expires.
	// Safe to call multiple times.
	Flush(ctx context.Context) error
}
