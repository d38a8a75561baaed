package fleet

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// List filters
// =============================================================================

// ListFilter pages and sorts a master data listing
type ListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
}

// =============================================================================
// Vehicle DTOs
// =============================================================================

// CreateVehicleRequest represents a request to register a vehicle
type CreateVehicleRequest struct {
	Plate string `json:"plate" binding:"required,min=1,max=20"`
	Make  string `json:"make" binding:"max=100"`
	Model string `json:"model" binding:"max=100"`
}

// VehicleResponse represents a vehicle in API responses
type VehicleResponse struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Plate        string     `json:"plate"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	IsActive     bool       `json:"is_active"`
	CostCenterID *uuid.UUID `json:"cost_center_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToVehicleResponse converts a domain Vehicle to VehicleResponse
func ToVehicleResponse(v *fleet.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:        v.ID,
		TenantID:  v.TenantID,
		Plate:     v.Plate,
		Make:      v.Make,
		Model:     v.Model,
		IsActive:  v.IsActive,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// =============================================================================
// Driver DTOs
// =============================================================================

// CreateDriverRequest represents a request to register a driver
type CreateDriverRequest struct {
	FullName string `json:"full_name" binding:"required,min=1,max=200"`
}

// DriverResponse represents a driver in API responses
type DriverResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDriverResponse converts a domain Driver to DriverResponse
func ToDriverResponse(d *fleet.Driver) DriverResponse {
	return DriverResponse{
		ID:        d.ID,
		TenantID:  d.TenantID,
		FullName:  d.FullName,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
}

// =============================================================================
// Transport order DTOs
// =============================================================================

// CreateTransportOrderRequest represents a request to record a transport order
type CreateTransportOrderRequest struct {
	Reference         string          `json:"reference" binding:"required,min=1,max=50"`
	CustomerName      string          `json:"customer_name" binding:"required,min=1,max=200"`
	Date              string          `json:"date" binding:"required"`
	Origin            string          `json:"origin" binding:"max=200"`
	Destination       string          `json:"destination" binding:"max=200"`
	DistanceKm        decimal.Decimal `json:"distance_km"`
	AgreedPrice       decimal.Decimal `json:"agreed_price"`
	AssignedVehicleID *uuid.UUID      `json:"assigned_vehicle_id"`
	AssignedDriverID  *uuid.UUID      `json:"assigned_driver_id"`
	DurationHours     decimal.Decimal `json:"duration_hours"`
	TollsCost         decimal.Decimal `json:"tolls_cost"`
	FerryCost         decimal.Decimal `json:"ferry_cost"`
	Status            string          `json:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED INVOICED"`
}

// TransportOrderResponse represents a transport order in API responses
type TransportOrderResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Reference         string          `json:"reference"`
	CustomerName      string          `json:"customer_name"`
	Date              string          `json:"date"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	DistanceKm        decimal.Decimal `json:"distance_km"`
	AgreedPrice       decimal.Decimal `json:"agreed_price"`
	AssignedVehicleID *uuid.UUID      `json:"assigned_vehicle_id"`
	AssignedDriverID  *uuid.UUID      `json:"assigned_driver_id"`
	DurationHours     decimal.Decimal `json:"duration_hours"`
	TollsCost         decimal.Decimal `json:"tolls_cost"`
	FerryCost         decimal.Decimal `json:"ferry_cost"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToTransportOrderResponse converts a domain TransportOrder to TransportOrderResponse
func ToTransportOrderResponse(o *fleet.TransportOrder) TransportOrderResponse {
	return TransportOrderResponse{
		ID:                o.ID,
		TenantID:          o.TenantID,
		Reference:         o.Reference,
		CustomerName:      o.CustomerName,
		Date:              o.Date.Format(valueobject.DateLayout),
		Origin:            o.Origin,
		Destination:       o.Destination,
		DistanceKm:        o.DistanceKm,
		AgreedPrice:       o.AgreedPrice,
		AssignedVehicleID: o.AssignedVehicleID,
		AssignedDriverID:  o.AssignedDriverID,
		DurationHours:     o.DurationHours,
		TollsCost:         o.TollsCost,
		FerryCost:         o.FerryCost,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
	}
}
