package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fleetcost/backend/internal/application/costengine"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func decimalField(t *testing.T, m map[string]any, key string) decimal.Decimal {
	t.Helper()
	raw, ok := m[key].(string)
	require.True(t, ok, "%s is not a decimal string: %v", key, m[key])
	return decimal.RequireFromString(raw)
}

func TestCostEngineHandler_Run(t *testing.T) {
	env := newTestEnv(t)
	_, overheadID := env.seedBasicScenario(t)

	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)

	meta := data["meta"].(map[string]any)
	assert.EqualValues(t, costengine.SchemaVersion, meta["schema_version"])
	assert.Equal(t, "test", meta["engine_version"])
	assert.Equal(t, env.tenantID.String(), meta["tenant_id"])
	assert.Equal(t, "2026-01-01", meta["period_start"])
	assert.Equal(t, "2026-01-31", meta["period_end"])
	assert.Equal(t, true, meta["persisted"])

	snapshots := data["snapshots"].([]any)
	require.Len(t, snapshots, 2)
	for _, raw := range snapshots {
		s := raw.(map[string]any)
		if s["cost_center_id"] == overheadID {
			assert.Equal(t, "REVENUE", s["basis_unit"])
			assert.True(t, decimal.RequireFromString("0.294118").Equal(decimalField(t, s, "rate")))
			continue
		}
		assert.Equal(t, "KM", s["basis_unit"])
		assert.True(t, decimal.NewFromInt(5).Equal(decimalField(t, s, "rate")))
	}

	breakdowns := data["breakdowns"].([]any)
	require.Len(t, breakdowns, 1)
	b := breakdowns[0].(map[string]any)
	assert.Equal(t, "ORD-1", b["order_ref"])
	assert.Equal(t, "OK", b["status"])
	assert.True(t, decimal.NewFromInt(2000).Equal(decimalField(t, b, "vehicle_alloc")))
	assert.True(t, decimalField(t, b, "revenue").Sub(decimalField(t, b, "total_cost")).Equal(decimalField(t, b, "profit")))

	summary := data["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_snapshots"])
	assert.EqualValues(t, 1, summary["total_breakdowns"])
	assert.True(t, decimal.NewFromInt(2500).Equal(decimalField(t, summary, "total_cost")))
	assert.True(t, decimal.NewFromInt(1700).Equal(decimalField(t, summary, "total_revenue")))
}

func TestCostEngineHandler_RunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedBasicScenario(t)

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodGet, "/api/v1/cost-engine/run?period_start=2026-01-01&period_end=2026-01-31", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/api/v1/cost-engine/history?month=2026-01&include_breakdowns=1", nil)
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Len(t, data["snapshots"].([]any), 2)
	assert.Len(t, data["breakdowns"].([]any), 1)
}

func TestCostEngineHandler_DryRunPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seedBasicScenario(t)

	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01&dry_run=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["meta"].(map[string]any)["persisted"])
	assert.Len(t, data["snapshots"].([]any), 2)

	w = env.do(t, http.MethodGet, "/api/v1/cost-engine/history?month=2026-01", nil)
	history := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Empty(t, history["snapshots"].([]any))
}

func TestCostEngineHandler_RunFilters(t *testing.T) {
	env := newTestEnv(t)
	env.seedBasicScenario(t)
	// a center without postings or activity yields a zero snapshot
	env.create(t, "/api/v1/costing/centers", map[string]any{"name": "Spare", "type": "OTHER"})

	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01&dry_run=1", nil)
	all := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Len(t, all["snapshots"].([]any), 3)

	w = env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01&dry_run=1&only_nonzero=1&include_breakdowns=0", nil)
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Len(t, data["snapshots"].([]any), 2)
	assert.Empty(t, data["breakdowns"].([]any))
	assert.EqualValues(t, 3, data["summary"].(map[string]any)["total_snapshots"])
}

func TestCostEngineHandler_EmptyTenant(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Empty(t, data["snapshots"].([]any))
	assert.Empty(t, data["breakdowns"].([]any))
	summary := data["summary"].(map[string]any)
	assert.True(t, decimalField(t, summary, "total_cost").IsZero())
	assert.True(t, decimalField(t, summary, "average_margin").IsZero())
}

func TestCostEngineHandler_RunRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"no period", "", dto.ErrCodeValidationRequired},
		{"only start", "?period_start=2026-01-01", dto.ErrCodeValidationRequired},
		{"bad month", "?month=2026-13", dto.ErrCodeValidationFormat},
		{"bad date", "?period_start=2026-01-01&period_end=31/01/2026", dto.ErrCodeValidationFormat},
		{"inverted", "?period_start=2026-02-01&period_end=2026-01-01", dto.ErrCodeValidationRange},
		{"bad flag", "?month=2026-01&dry_run=yes", dto.ErrCodeValidationFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run"+tt.query, nil)
			testutil.AssertErrorResponse(t, w, http.StatusBadRequest, tt.code)
		})
	}
}

type stubRunner struct {
	err error
}

func (s stubRunner) Run(context.Context, costengine.RunInput) (*costengine.Result, error) {
	return nil, s.err
}

func TestCostEngineHandler_RunErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"persistence", fmt.Errorf("%w: %w", costengine.ErrPersistence, errors.New("deadlock")), http.StatusInternalServerError, dto.ErrCodePersistence},
		{"busy", costengine.ErrRecomputeInProgress, http.StatusConflict, dto.ErrCodeRecomputeInProgress},
		{"ambiguous", costengine.ErrAmbiguousOverhead, http.StatusUnprocessableEntity, dto.ErrCodeAmbiguousOverhead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCostEngineHandler(stubRunner{err: tt.err}, nil)
			r := gin.New()
			r.POST("/run", h.Run)

			w := testutil.PerformRequest(t, r, http.MethodPost, "/run?month=2026-01", nil, nil)
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
			assert.NotContains(t, w.Body.String(), "deadlock")
		})
	}
}

func TestCostEngineHandler_History(t *testing.T) {
	env := newTestEnv(t)
	_, overheadID := env.seedBasicScenario(t)
	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/cost-engine/history?month=2026-01&cost_center_id="+overheadID+"&limit=9999", nil)
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	meta := data["meta"].(map[string]any)
	assert.Equal(t, "v1.0", meta["schema"])
	assert.Equal(t, "persisted", meta["source"])
	filters := meta["filters"].(map[string]any)
	assert.EqualValues(t, 2000, filters["limit"])
	assert.Equal(t, overheadID, filters["cost_center_id"])
	assert.Equal(t, false, filters["include_breakdowns"])

	snapshots := data["snapshots"].([]any)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Overhead", snapshots[0].(map[string]any)["cost_center_name"])
	assert.Empty(t, data["breakdowns"].([]any))

	w = env.do(t, http.MethodGet, "/api/v1/cost-engine/history?month=2026-01&include_breakdowns=1", nil)
	data = testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	breakdowns := data["breakdowns"].([]any)
	require.Len(t, breakdowns, 1)
	b := breakdowns[0].(map[string]any)
	assert.Equal(t, "ORD-1", b["order_reference"])
	assert.Equal(t, "2026-01-15", b["order_date"])
	assert.Equal(t, "ACME", b["customer_name"])
	assert.EqualValues(t, 1, data["summary"].(map[string]any)["breakdown_count"])
}

func TestCostEngineHandler_HistoryRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"bad center", "?month=2026-01&cost_center_id=abc", dto.ErrCodeValidationFormat},
		{"bad basis", "?month=2026-01&basis_unit=LITRE", dto.ErrCodeInvalidInput},
		{"bad limit", "?month=2026-01&limit=many", dto.ErrCodeValidationFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/cost-engine/history"+tt.query, nil)
			testutil.AssertErrorResponse(t, w, http.StatusBadRequest, tt.code)
		})
	}
}

func TestCostEngineHandler_Export(t *testing.T) {
	env := newTestEnv(t)
	env.seedBasicScenario(t)
	w := env.do(t, http.MethodPost, "/api/v1/cost-engine/run?month=2026-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/cost-engine/history/export?month=2026-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, XLSXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cost-history_2026-01-01_2026-01-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	snapshots, err := f.GetRows("Snapshots")
	require.NoError(t, err)
	assert.Len(t, snapshots, 3)
	assert.Equal(t, "period_start", snapshots[0][0])

	breakdowns, err := f.GetRows("Breakdowns")
	require.NoError(t, err)
	require.Len(t, breakdowns, 2)
	assert.Equal(t, "ORD-1", breakdowns[1][1])
}
