// Package observability — domain-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Domain-specific semantic convention attributes.
var (
	// Document attributes
	AttrDocumentID  = attribute.Key("gesdoc.document.id")
	AttrDirection   = attribute.Key("gesdoc.document.direction")
	AttrCorrelative = attribute.Key("gesdoc.document.correlative")

	// Workflow attributes
	AttrStage       = attribute.Key("gesdoc.workflow.stage")
	AttrStageStatus = attribute.Key("gesdoc.workflow.stage_status")
	AttrFromStage   = attribute.Key("gesdoc.workflow.from_stage")
	AttrToStage     = attribute.Key("gesdoc.workflow.to_stage")

	// Signature attributes
	AttrSignatureMethod = attribute.Key("gesdoc.signature.method")
	AttrSignerID        = attribute.Key("gesdoc.signature.signer_id")

	// Sweep attributes
	AttrSweepOutcome  = attribute.Key("gesdoc.sweep.outcome")
	AttrReminderKind  = attribute.Key("gesdoc.reminder.kind")
	AttrReminderState = attribute.Key("gesdoc.reminder.state") // "sent" | "suppressed"
)

// TransitionOperation creates attributes for a stage transition.
func TransitionOperation(documentID, direction, from, to string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDocumentID.String(documentID),
		AttrDirection.String(direction),
		AttrFromStage.String(from),
		AttrToStage.String(to),
	}
}

// SignatureOperation creates attributes for a signing act.
func SignatureOperation(documentID, method, signerID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDocumentID.String(documentID),
		AttrSignatureMethod.String(method),
		AttrSignerID.String(signerID),
	}
}

// SweepOperation creates attributes for one sweep run.
func SweepOperation(outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSweepOutcome.String(outcome),
	}
}

// ReminderOperation creates attributes for a reminder disposition.
func ReminderOperation(documentID, kind, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDocumentID.String(documentID),
		AttrReminderKind.String(kind),
		AttrReminderState.String(state),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
