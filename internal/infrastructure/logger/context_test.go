package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func TestLookup(t *testing.T) {
	_, ok := Lookup(context.Background())
	assert.False(t, ok)
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewNop()
	got, ok := Lookup(WithContext(context.Background(), l))
	assert.True(t, ok)
	assert.Same(t, l, got)
}

func TestWithIdentityFields(t *testing.T) {
	base, logs := observed(zapcore.InfoLevel)
	ctx := context.Background()

	ctx, l := WithRequestID(ctx, base, "req-1")
	ctx, l = WithTenantID(ctx, l, "tenant-1")
	ctx, _ = WithUserID(ctx, l, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))

	L(ctx).Info("hello")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "user-1", fields["user_id"])

	// tenant_id appears once
	count := 0
	for _, f := range logs.All()[0].Context {
		if f.Key == "tenant_id" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTagTenant_PickedUpByL(t *testing.T) {
	base, logs := observed(zapcore.DebugLevel)
	ctx := TagTenant(WithContext(context.Background(), base), "tenant-9")

	L(ctx).With(zap.String("period", "2024-03")).Debug("calculated")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tenant-9", fields["tenant_id"])
	assert.Equal(t, "2024-03", fields["period"])
}

func TestL_AddsTraceFields(t *testing.T) {
	base, logs := observed(zapcore.InfoLevel)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(WithContext(context.Background(), base), sc)

	L(ctx).Warn("slow stage")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestWithLogger_NilFallsBackToNop(t *testing.T) {
	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).Error("ignored")
	})
}
