package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestVerdict(t *testing.T) {
	tests := []struct {
		direct, other bool
		want          string
	}{
		{false, false, VerdictFirstTime},
		{true, false, VerdictDirectFollowUp},
		{true, true, VerdictHybrid},
		{false, true, VerdictOtherThreadsOnly},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Verdict(tt.direct, tt.other))
		})
	}
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordResolution(VerdictHybrid, 0.002)
	m.RecordResolution(VerdictHybrid, 0.004)
	m.RecordSkip("ambiguous_brand")
	m.RecordRowSkipped("unparsable_date")
	m.RecordRowSkipped("unparsable_date")
	m.RecordSourceError("csv", "missing_column")
	m.RecordDraft("ok", 3)
	m.RecordMessage("brief", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues(VerdictHybrid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkipsTotal.WithLabelValues("ambiguous_brand")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HistoryRowsSkippedTotal.WithLabelValues("unparsable_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceErrorsTotal.WithLabelValues("csv", "missing_column")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("brief", "sent")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "prepbrief_resolutions_total")
	assert.Contains(t, names, "prepbrief_resolve_seconds")
	assert.Contains(t, names, "prepbrief_history_rows_skipped_total")
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestTracer_NoopProvider(t *testing.T) {
	tr := NewTracerWithProvider(noop.NewTracerProvider())
	ctx := context.Background()

	ctx, span := tr.StartPrepareSpan(ctx, "evt-1", "run-1")
	h := NewSpanHelper(span)
	h.SetScreenDecision("proceed")
	h.SetRows(3)
	h.SetResolution(VerdictFirstTime, 0, 0, 1)
	h.SetError(errors.New("boom"), "processing_error", false)
	h.SetSuccess()
	span.End()

	_, child := tr.StartSnapshotSpan(ctx, "csv")
	child.End()
	_, child = tr.StartResolveSpan(ctx, "Acme")
	child.End()
	_, child = tr.StartDraftSpan(ctx, "gpt-5-mini")
	child.End()

	assert.Empty(t, GetTraceID(ctx))
}

func TestGetTraceID(t *testing.T) {
	traceID := trace.TraceID{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, "0a0b0c0d0e0f10111213141516171819", GetTraceID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}
