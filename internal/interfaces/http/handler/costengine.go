package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fleetcost/backend/internal/application/analytics"
	"github.com/fleetcost/backend/internal/application/costengine"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// XLSXContentType is the media type of history exports
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CostEngineRunner runs the engine for the ambient tenant
type CostEngineRunner interface {
	Run(ctx context.Context, in costengine.RunInput) (*costengine.Result, error)
}

// CostEngineHandler serves the run, history and export endpoints
type CostEngineHandler struct {
	BaseHandler
	runner  CostEngineRunner
	history *analytics.HistoryService
}

// NewCostEngineHandler creates a new CostEngineHandler
func NewCostEngineHandler(runner CostEngineRunner, history *analytics.HistoryService) *CostEngineHandler {
	return &CostEngineHandler{runner: runner, history: history}
}

// Run calculates the requested period and, unless dry_run=1, replaces the
// stored results of that period.
//
//	GET|POST /api/v1/cost-engine/run?month=2026-01&dry_run=0&only_nonzero=0&include_breakdowns=1
func (h *CostEngineHandler) Run(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dryRun, err := parseFlag(c, "dry_run", false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	opts, err := viewOptions(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.runner.Run(c.Request.Context(), costengine.RunInput{
		Period:  period,
		DryRun:  dryRun,
		Trigger: telemetry.RunTriggerAPI,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, costengine.NewRunView(result, opts))
}

func viewOptions(c *gin.Context) (costengine.ViewOptions, error) {
	onlyNonZero, err := parseFlag(c, "only_nonzero", false)
	if err != nil {
		return costengine.ViewOptions{}, err
	}
	includeBreakdowns, err := parseFlag(c, "include_breakdowns", true)
	if err != nil {
		return costengine.ViewOptions{}, err
	}
	return costengine.ViewOptions{OnlyNonZero: onlyNonZero, IncludeBreakdowns: includeBreakdowns}, nil
}

// History lists persisted snapshots, and breakdowns with include_breakdowns=1
//
//	GET /api/v1/cost-engine/history?month=2026-01&cost_center_id=&basis_unit=&limit=500
func (h *CostEngineHandler) History(c *gin.Context) {
	q, err := historyQuery(c, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	view, err := h.history.History(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Export streams the history as an XLSX workbook
//
//	GET /api/v1/cost-engine/history/export?month=2026-01
func (h *CostEngineHandler) Export(c *gin.Context) {
	q, err := historyQuery(c, true)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.history.Export(c.Request.Context(), q, &buf); err != nil {
		h.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("cost-history_%s_%s.xlsx",
		q.Period.Start().Format(valueobject.DateLayout), q.Period.End().Format(valueobject.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, XLSXContentType, buf.Bytes())
}

func historyQuery(c *gin.Context, includeBreakdowns bool) (analytics.HistoryQuery, error) {
	period, err := parsePeriod(c)
	if err != nil {
		return analytics.HistoryQuery{}, err
	}
	centerID, err := parseOptionalUUID(c, "cost_center_id")
	if err != nil {
		return analytics.HistoryQuery{}, err
	}
	basis, err := parseBasisUnit(c)
	if err != nil {
		return analytics.HistoryQuery{}, err
	}
	onlyNonZero, err := parseFlag(c, "only_nonzero", false)
	if err != nil {
		return analytics.HistoryQuery{}, err
	}
	if !includeBreakdowns {
		if includeBreakdowns, err = parseFlag(c, "include_breakdowns", false); err != nil {
			return analytics.HistoryQuery{}, err
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return analytics.HistoryQuery{}, shared.NewDomainError(dto.ErrCodeValidationFormat, "limit must be an integer")
		}
	}

	return analytics.HistoryQuery{
		Period:            period,
		CostCenterID:      centerID,
		BasisUnit:         basis,
		IncludeBreakdowns: includeBreakdowns,
		OnlyNonZero:       onlyNonZero,
		Limit:             analytics.NormalizeLimit(limit),
	}, nil
}
