package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func label(ctx context.Context, key string) string {
	v, _ := pprof.Label(ctx, key)
	return v
}

func TestWithProfilingLabels_EmptyLabels(t *testing.T) {
	called := 0
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called++ })
	WithProfilingLabels(context.Background(), map[string]string{"user_id": "u-1"}, func(context.Context) { called++ })
	assert.Equal(t, 2, called)
}

func TestWithProfilingLabels_AttachesLabels(t *testing.T) {
	var got context.Context
	labels := CostEngineRunLabels("2b1c6a9e-4f5d-4e43-9a57-4b1d2f0a9c11", "2026-01-01..2026-01-31", RunTriggerScheduler)

	WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		got = ctx
	})

	assert.Equal(t, OperationCostEngineRun, label(got, ProfilingLabelOperation))
	assert.Equal(t, "2b1c6a9e-4f5d-4e43-9a57-4b1d2f0a9c11", label(got, ProfilingLabelTenantID))
	assert.Equal(t, "2026-01-01..2026-01-31", label(got, ProfilingLabelPeriod))
	assert.Equal(t, string(RunTriggerScheduler), label(got, ProfilingLabelTrigger))

	// the caller's map is not aliased
	labels[ProfilingLabelPeriod] = "changed"
	assert.Equal(t, "2026-01-01..2026-01-31", label(got, ProfilingLabelPeriod))
}

func TestCostEngineRunLabels_OmitsEmpty(t *testing.T) {
	assert.Equal(t, map[string]string{ProfilingLabelOperation: OperationCostEngineRun}, CostEngineRunLabels("", "", ""))
}

func TestHTTPRequestLabels(t *testing.T) {
	assert.Equal(t, map[string]string{
		ProfilingLabelRoute:  "/api/v1/kpis/summary",
		ProfilingLabelMethod: "GET",
	}, HTTPRequestLabels("/api/v1/kpis/summary", "GET", ""))
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Tenant-ID":  "t1",
		"order_id":   "o-9",
		"method":     "",
		"":           "x",
		"route":      strings.Repeat("r", MaxLabelValueLength+10),
		"op (stage)": "persist",
	})

	// ordered by the original key, uppercase first
	assert.Equal(t, []string{
		"tenant_id", "t1",
		"op_stage", "persist",
		"route", strings.Repeat("r", MaxLabelValueLength),
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "engine_version", sanitizeLabelKey("Engine Version"))
	assert.Equal(t, "tenant_id", sanitizeLabelKey("tenant-id"))
	assert.Equal(t, "", sanitizeLabelKey("@#$"))
}
