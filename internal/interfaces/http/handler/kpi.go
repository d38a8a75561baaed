package handler

import (
	"time"

	"github.com/fleetcost/backend/internal/application/analytics"
	"github.com/gin-gonic/gin"
)

// KPIHandler serves the dashboard KPIs
type KPIHandler struct {
	BaseHandler
	kpis *analytics.KPIService
	now  func() time.Time
}

// NewKPIHandler creates a new KPIHandler
func NewKPIHandler(kpis *analytics.KPIService) *KPIHandler {
	return &KPIHandler{kpis: kpis, now: time.Now}
}

// Summary returns totals and status counts for a period
func (h *KPIHandler) Summary(c *gin.Context) {
	period, err := parseKPIPeriod(c, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	basis, err := parseBasisUnit(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view, err := h.kpis.Summary(c.Request.Context(), analytics.SummaryQuery{Period: period, BasisUnit: basis})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// CostStructure returns the cost share of each cost center
func (h *KPIHandler) CostStructure(c *gin.Context) {
	period, err := parseKPIPeriod(c, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	basis, err := parseBasisUnit(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	groupBy, err := analytics.ParseGroupBy(c.Query("group_by"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view, err := h.kpis.CostStructure(c.Request.Context(), analytics.StructureQuery{
		Period:    period,
		BasisUnit: basis,
		GroupBy:   groupBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Trend returns cost and rate per month or week
func (h *KPIHandler) Trend(c *gin.Context) {
	period, err := parseKPIPeriod(c, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	basis, err := parseBasisUnit(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	grain, err := analytics.ParseGrain(c.Query("grain"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view, err := h.kpis.Trend(c.Request.Context(), analytics.TrendQuery{Period: period, BasisUnit: basis, Grain: grain})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
