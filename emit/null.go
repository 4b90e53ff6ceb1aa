package emit

import "context"

// NullEmitter discards every event. Use it when observability overhead is
// unwanted, e.g. in short-lived test fixtures that don't assert on events.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that does nothing.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (n *NullEmitter) Emit(Event) {}

func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (n *NullEmitter) Flush(context.Context) error { return nil }
