package costing

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter pages and sorts a master data listing
type ListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
}

// =============================================================================
// Cost center DTOs
// =============================================================================

// CreateCostCenterRequest represents a request to create a cost center
type CreateCostCenterRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=200"`
	Type        string     `json:"type" binding:"required,oneof=VEHICLE DRIVER OVERHEAD ROUTE OTHER"`
	VehicleID   *uuid.UUID `json:"vehicle_id"`
	DriverID    *uuid.UUID `json:"driver_id"`
	Description string     `json:"description" binding:"max=1000"`
}

// CostCenterResponse represents a cost center in API responses
type CostCenterResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	VehicleID   *uuid.UUID `json:"vehicle_id"`
	DriverID    *uuid.UUID `json:"driver_id"`
	IsActive    bool       `json:"is_active"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToCostCenterResponse converts a domain CostCenter to CostCenterResponse
func ToCostCenterResponse(c *costing.CostCenter) CostCenterResponse {
	return CostCenterResponse{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Type:        string(c.Type),
		VehicleID:   c.VehicleID,
		DriverID:    c.DriverID,
		IsActive:    c.IsActive,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// =============================================================================
// Cost item DTOs
// =============================================================================

// CreateCostItemRequest represents a request to create a cost item
type CreateCostItemRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Category string `json:"category" binding:"required,oneof=FIXED VARIABLE INDIRECT"`
	Unit     string `json:"unit" binding:"required,oneof=MONTH KM HOUR TRIP"`
}

// CostItemResponse represents a cost item in API responses
type CostItemResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToCostItemResponse converts a domain CostItem to CostItemResponse
func ToCostItemResponse(i *costing.CostItem) CostItemResponse {
	return CostItemResponse{
		ID:        i.ID,
		TenantID:  i.TenantID,
		Name:      i.Name,
		Category:  string(i.Category),
		Unit:      string(i.Unit),
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
	}
}

// =============================================================================
// Cost posting DTOs
// =============================================================================

// CreateCostPostingRequest represents a request to book a cost
type CreateCostPostingRequest struct {
	CostItemID   uuid.UUID       `json:"cost_item_id" binding:"required"`
	CostCenterID uuid.UUID       `json:"cost_center_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	PeriodStart  string          `json:"period_start" binding:"required"`
	PeriodEnd    string          `json:"period_end" binding:"required"`
	Notes        string          `json:"notes" binding:"max=1000"`
}

// CostPostingResponse represents a cost posting in API responses
type CostPostingResponse struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	CostItemID   uuid.UUID       `json:"cost_item_id"`
	CostCenterID uuid.UUID       `json:"cost_center_id"`
	Amount       decimal.Decimal `json:"amount"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToCostPostingResponse converts a domain CostPosting to CostPostingResponse
func ToCostPostingResponse(p *costing.CostPosting) CostPostingResponse {
	return CostPostingResponse{
		ID:           p.ID,
		TenantID:     p.TenantID,
		CostItemID:   p.CostItemID,
		CostCenterID: p.CostCenterID,
		Amount:       p.Amount,
		PeriodStart:  p.Period.Start().Format(valueobject.DateLayout),
		PeriodEnd:    p.Period.End().Format(valueobject.DateLayout),
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt,
	}
}
