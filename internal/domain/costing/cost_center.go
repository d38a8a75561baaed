package costing

import (
	"strings"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CostCenterType classifies what a cost center represents
type CostCenterType string

const (
	CostCenterTypeVehicle  CostCenterType = "VEHICLE"
	CostCenterTypeDriver   CostCenterType = "DRIVER"
	CostCenterTypeOverhead CostCenterType = "OVERHEAD"
	CostCenterTypeRoute    CostCenterType = "ROUTE"
	CostCenterTypeOther    CostCenterType = "OTHER"
)

// IsValid reports whether t is a known cost center type
func (t CostCenterType) IsValid() bool {
	switch t {
	case CostCenterTypeVehicle, CostCenterTypeDriver, CostCenterTypeOverhead, CostCenterTypeRoute, CostCenterTypeOther:
		return true
	}
	return false
}

// CostCenter is a named bucket that accumulates postings and carries a derived unit rate
type CostCenter struct {
	shared.TenantAggregateRoot
	Name        string
	Type        CostCenterType
	VehicleID   *uuid.UUID
	DriverID    *uuid.UUID
	IsActive    bool
	Description string
}

// NewCostCenter creates an active cost center.
// A center may link to at most one of a vehicle or a driver.
func NewCostCenter(name string, centerType CostCenterType, vehicleID, driverID *uuid.UUID, description string) (*CostCenter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost center name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost center name cannot exceed 200 characters")
	}
	if !centerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid cost center type")
	}
	if vehicleID != nil && driverID != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost center can link to a vehicle or a driver, not both")
	}

	return &CostCenter{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		Name:                name,
		Type:                centerType,
		VehicleID:           vehicleID,
		DriverID:            driverID,
		IsActive:            true,
		Description:         description,
	}, nil
}

// NewVehicleCostCenter creates the VEHICLE center that accompanies a new vehicle
func NewVehicleCostCenter(vehicleID uuid.UUID, plate string) (*CostCenter, error) {
	return NewCostCenter("Vehicle "+plate, CostCenterTypeVehicle, &vehicleID, nil, "")
}

// Deactivate removes the center from future calculations
func (c *CostCenter) Deactivate() error {
	if !c.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Cost center is already inactive")
	}
	c.IsActive = false
	c.Touch()
	return nil
}

// Activate returns the center to future calculations
func (c *CostCenter) Activate() error {
	if c.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Cost center is already active")
	}
	c.IsActive = true
	c.Touch()
	return nil
}

// IsOverhead reports whether the center absorbs overhead
func (c *CostCenter) IsOverhead() bool {
	return c.Type == CostCenterTypeOverhead
}
