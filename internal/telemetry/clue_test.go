package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestKVSliceToClueSkipsNonStringKeysAndPadsOddLength(t *testing.T) {
	fielders := kvSliceToClue([]any{"count", 3, 42, "ignored", "partial"})

	// "count"->3 kept, 42->"ignored" dropped (non-string key), "partial"->nil kept.
	require.Len(t, fielders, 2)
}

func TestTagsToAttrsPadsOddLengthWithEmptyValue(t *testing.T) {
	attrs := tagsToAttrs([]string{"pattern", "direct", "dangling"})

	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.String("pattern", "direct"), attrs[0])
	assert.Equal(t, attribute.String("dangling", ""), attrs[1])
}

func TestTagsToAttrsEmptyInputYieldsNoAttrs(t *testing.T) {
	assert.Empty(t, tagsToAttrs(nil))
}

func TestKVSliceToAttrsConvertsByConcreteType(t *testing.T) {
	attrs := kvSliceToAttrs([]any{
		"s", "text",
		"i", 7,
		"i64", int64(8),
		"f", 1.5,
		"b", true,
		"other", []string{"x"},
	})

	require.Len(t, attrs, 6)
	assert.Equal(t, attribute.String("s", "text"), attrs[0])
	assert.Equal(t, attribute.Int("i", 7), attrs[1])
	assert.Equal(t, attribute.Int64("i64", 8), attrs[2])
	assert.Equal(t, attribute.Float64("f", 1.5), attrs[3])
	assert.Equal(t, attribute.Bool("b", true), attrs[4])
	assert.Equal(t, attribute.String("other", ""), attrs[5])
}

func TestKVSliceToAttrsNonStringKeyBecomesEmptyKey(t *testing.T) {
	attrs := kvSliceToAttrs([]any{42, "value"})

	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.String("", "value"), attrs[0])
}

func TestClueMetricsDoesNotPanicAgainstDefaultGlobalProvider(t *testing.T) {
	metrics := NewClueMetrics()

	assert.NotPanics(t, func() {
		metrics.IncCounter("test_requests", 1, "pattern", "direct")
		metrics.RecordTimer("test_latency", 5*time.Millisecond)
		metrics.RecordGauge("test_pool_size", 2)
	})
}

func TestClueTracerDoesNotPanicAgainstDefaultGlobalProvider(t *testing.T) {
	tracer := NewClueTracer()
	ctx := context.Background()

	spanCtx, span := tracer.Start(ctx, "test-span")
	require.NotNil(t, span)
	require.NotNil(t, spanCtx)

	assert.NotPanics(t, func() {
		span.AddEvent("step", "n", 1)
		span.SetStatus(codes.Ok, "done")
		span.RecordError(nil)
		span.End()
	})

	assert.NotNil(t, tracer.Span(spanCtx))
}
