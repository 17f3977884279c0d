package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
)

func TestNoopLoggerSatisfiesInterfaceAndDoesNotPanic(t *testing.T) {
	var logger Logger = NewNoopLogger()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.Debug(ctx, "debug", "k", "v")
		logger.Info(ctx, "info")
		logger.Warn(ctx, "warn")
		logger.Error(ctx, "error")
	})
}

func TestNoopMetricsSatisfiesInterfaceAndDoesNotPanic(t *testing.T) {
	var metrics Metrics = NewNoopMetrics()

	assert.NotPanics(t, func() {
		metrics.IncCounter("requests", 1, "pattern:direct")
		metrics.RecordTimer("latency", 10*time.Millisecond)
		metrics.RecordGauge("pool_size", 4)
	})
}

func TestNoopTracerSatisfiesInterfaceAndReturnsUsableSpan(t *testing.T) {
	var tracer Tracer = NewNoopTracer()
	ctx := context.Background()

	spanCtx, span := tracer.Start(ctx, "execute")
	assert.Equal(t, ctx, spanCtx, "no-op tracer must not alter the context")
	require := assert.New(t)
	require.NotNil(span)

	assert.NotPanics(t, func() {
		span.AddEvent("step", "n", 1)
		span.SetStatus(codes.Ok, "done")
		span.RecordError(nil)
		span.End()
	})

	assert.NotNil(t, tracer.Span(ctx))
}
