package handler

import (
	"context"

	costingapp "github.com/fleetcost/backend/internal/application/costing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CostingHandler serves cost centers, cost items and postings
type CostingHandler struct {
	BaseHandler
	centers  *costingapp.CostCenterService
	items    *costingapp.CostItemService
	postings *costingapp.CostPostingService
}

// NewCostingHandler creates a new CostingHandler
func NewCostingHandler(centers *costingapp.CostCenterService, items *costingapp.CostItemService, postings *costingapp.CostPostingService) *CostingHandler {
	return &CostingHandler{centers: centers, items: items, postings: postings}
}

// CreateCenter creates a cost center
func (h *CostingHandler) CreateCenter(c *gin.Context) {
	var req costingapp.CreateCostCenterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	center, err := h.centers.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, center)
}

// GetCenter returns one cost center
func (h *CostingHandler) GetCenter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	center, err := h.centers.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, center)
}

// ListCenters lists cost centers a page at a time
func (h *CostingHandler) ListCenters(c *gin.Context) {
	var filter costingapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	centers, total, err := h.centers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, centers, total, filter.Page, filter.PageSize)
}

// DeactivateCenter takes a cost center out of future runs
func (h *CostingHandler) DeactivateCenter(c *gin.Context) {
	h.toggleCenter(c, h.centers.Deactivate)
}

// ActivateCenter brings a cost center back into runs
func (h *CostingHandler) ActivateCenter(c *gin.Context) {
	h.toggleCenter(c, h.centers.Activate)
}

func (h *CostingHandler) toggleCenter(c *gin.Context, change func(ctx context.Context, id uuid.UUID) (*costingapp.CostCenterResponse, error)) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	center, err := change(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, center)
}

// CreateItem creates a cost item
func (h *CostingHandler) CreateItem(c *gin.Context) {
	var req costingapp.CreateCostItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.items.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// ListItems lists cost items a page at a time
func (h *CostingHandler) ListItems(c *gin.Context) {
	var filter costingapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	items, total, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// CreatePosting records a cost amount against a center and item
func (h *CostingHandler) CreatePosting(c *gin.Context) {
	var req costingapp.CreateCostPostingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	posting, err := h.postings.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, posting)
}

// ListPostings lists the postings overlapping a period
func (h *CostingHandler) ListPostings(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	postings, err := h.postings.ListForPeriod(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, postings)
}
