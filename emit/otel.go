package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns events into OpenTelemetry spans, one span per event.
// Each event is a point in time (stage entry, checkpoint write, pattern
// detection) rather than a duration, so spans are started and ended
// immediately; a "duration_ms" meta key is recorded as an attribute rather
// than stretching the span.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an Emitter backed by tracer, typically obtained via
// otel.Tracer("sentinel").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()
	annotateSpan(span, event)
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		annotateSpan(span, event)
		span.End()
	}
	return nil
}

// Flush is a no-op here; span export is governed by the configured
// TracerProvider's batch span processor, flushed via its own ForceFlush.
func (o *OTelEmitter) Flush(context.Context) error { return nil }

func annotateSpan(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("run_id", event.RunID),
		attribute.Int("step", event.Step),
		attribute.String("stage", event.Stage),
	)
	for k, v := range event.Meta {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}
