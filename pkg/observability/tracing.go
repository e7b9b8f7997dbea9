package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for prep operations.
	TracerName = "prepbrief"
)

// Span attribute keys
const (
	AttrEventID        = "event_id"
	AttrRunID          = "run_id"
	AttrBrand          = "brand"
	AttrSource         = "source"
	AttrModel          = "model"
	AttrRows           = "rows"
	AttrVerdict        = "verdict"
	AttrContinuity     = "continuity_count"
	AttrOtherThreads   = "other_thread_count"
	AttrSkippedRows    = "skipped_rows"
	AttrErrorCode      = "error_code"
	AttrRetryable      = "retryable"
	AttrScreenDecision = "screen_decision"
)

// Span names
const (
	SpanPrepare         = "prepbrief.prepare"
	SpanHistorySnapshot = "prepbrief.history.snapshot"
	SpanResolve         = "prepbrief.resolve"
	SpanDraft           = "prepbrief.draft"
)

// Tracer provides spans for prep operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// NewTracerWithProvider creates a tracer from tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartPrepareSpan starts the root span for preparing one event.
func (t *Tracer) StartPrepareSpan(ctx context.Context, eventID, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanPrepare,
		trace.WithAttributes(
			attribute.String(AttrEventID, eventID),
			attribute.String(AttrRunID, runID),
		),
	)
}

// StartSnapshotSpan starts a span for loading the history snapshot.
func (t *Tracer) StartSnapshotSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanHistorySnapshot,
		trace.WithAttributes(attribute.String(AttrSource, source)),
	)
}

// StartResolveSpan starts a span for classification and assembly.
func (t *Tracer) StartResolveSpan(ctx context.Context, brand string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanResolve,
		trace.WithAttributes(attribute.String(AttrBrand, brand)),
	)
}

// StartDraftSpan starts a span for drafting the brief.
func (t *Tracer) StartDraftSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanDraft,
		trace.WithAttributes(attribute.String(AttrModel, model)),
	)
}

// SpanHelper provides convenient methods for working with a span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetRows sets the number of history rows loaded.
func (h *SpanHelper) SetRows(n int) {
	h.span.SetAttributes(attribute.Int(AttrRows, n))
}

// SetResolution sets the classification outcome attributes.
func (h *SpanHelper) SetResolution(verdict string, continuity, otherThreads, skipped int) {
	h.span.SetAttributes(
		attribute.String(AttrVerdict, verdict),
		attribute.Int(AttrContinuity, continuity),
		attribute.Int(AttrOtherThreads, otherThreads),
		attribute.Int(AttrSkippedRows, skipped),
	)
}

// SetScreenDecision records how screening treated the event.
func (h *SpanHelper) SetScreenDecision(decision string) {
	h.span.SetAttributes(attribute.String(AttrScreenDecision, decision))
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, code string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
