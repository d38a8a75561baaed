package fleet

import (
	"strings"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Vehicle is a truck or van of the fleet
type Vehicle struct {
	shared.TenantAggregateRoot
	Plate    string
	Make     string
	Model    string
	IsActive bool
}

// NewVehicle creates an active vehicle; the plate is normalized to upper case
func NewVehicle(plate, vehicleMake, model string) (*Vehicle, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Vehicle plate cannot be empty")
	}
	if len(plate) > 20 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Vehicle plate cannot exceed 20 characters")
	}

	return &Vehicle{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		Plate:               plate,
		Make:                strings.TrimSpace(vehicleMake),
		Model:               strings.TrimSpace(model),
		IsActive:            true,
	}, nil
}

// Driver is a person who can be assigned to orders
type Driver struct {
	shared.TenantAggregateRoot
	FullName string
	IsActive bool
}

// NewDriver creates an active driver
func NewDriver(fullName string) (*Driver, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Driver name cannot be empty")
	}
	return &Driver{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		FullName:            fullName,
		IsActive:            true,
	}, nil
}
