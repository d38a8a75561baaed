package models

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleModel is the persistence model for the Vehicle domain entity
type VehicleModel struct {
	TenantAggregateModel
	Plate    string `gorm:"type:varchar(20);not null;index"`
	Make     string `gorm:"type:varchar(100)"`
	Model    string `gorm:"type:varchar(100)"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VehicleModel) TableName() string {
	return "vehicles"
}

// ToDomain converts the persistence model to a domain Vehicle
func (m *VehicleModel) ToDomain() *fleet.Vehicle {
	return &fleet.Vehicle{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Plate:               m.Plate,
		Make:                m.Make,
		Model:               m.Model,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Vehicle
func (m *VehicleModel) FromDomain(v *fleet.Vehicle) {
	m.FromDomainTenantAggregateRoot(v.TenantAggregateRoot)
	m.Plate = v.Plate
	m.Make = v.Make
	m.Model = v.Model
	m.IsActive = v.IsActive
}

// DriverModel is the persistence model for the Driver domain entity
type DriverModel struct {
	TenantAggregateModel
	FullName string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DriverModel) TableName() string {
	return "drivers"
}

// ToDomain converts the persistence model to a domain Driver
func (m *DriverModel) ToDomain() *fleet.Driver {
	return &fleet.Driver{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		FullName:            m.FullName,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Driver
func (m *DriverModel) FromDomain(d *fleet.Driver) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.FullName = d.FullName
	m.IsActive = d.IsActive
}

// TransportOrderModel is the persistence model for the TransportOrder domain entity
type TransportOrderModel struct {
	TenantAggregateModel
	Reference         string            `gorm:"type:varchar(50);not null"`
	CustomerName      string            `gorm:"type:varchar(200);not null"`
	Date              time.Time         `gorm:"type:date;not null;index"`
	Origin            string            `gorm:"type:varchar(200)"`
	Destination       string            `gorm:"type:varchar(200)"`
	DistanceKm        decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	AgreedPrice       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	AssignedVehicleID *uuid.UUID        `gorm:"type:uuid;index"`
	AssignedDriverID  *uuid.UUID        `gorm:"type:uuid;index"`
	DurationHours     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	TollsCost         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	FerryCost         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status            fleet.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (TransportOrderModel) TableName() string {
	return "transport_orders"
}

// ToDomain converts the persistence model to a domain TransportOrder
func (m *TransportOrderModel) ToDomain() *fleet.TransportOrder {
	return &fleet.TransportOrder{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Reference:           m.Reference,
		CustomerName:        m.CustomerName,
		Date:                m.Date.UTC(),
		Origin:              m.Origin,
		Destination:         m.Destination,
		DistanceKm:          m.DistanceKm,
		AgreedPrice:         m.AgreedPrice,
		AssignedVehicleID:   m.AssignedVehicleID,
		AssignedDriverID:    m.AssignedDriverID,
		DurationHours:       m.DurationHours,
		TollsCost:           m.TollsCost,
		FerryCost:           m.FerryCost,
		Status:              m.Status,
	}
}

// FromDomain populates the persistence model from a domain TransportOrder
func (m *TransportOrderModel) FromDomain(o *fleet.TransportOrder) {
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	m.Reference = o.Reference
	m.CustomerName = o.CustomerName
	m.Date = o.Date
	m.Origin = o.Origin
	m.Destination = o.Destination
	m.DistanceKm = o.DistanceKm
	m.AgreedPrice = o.AgreedPrice
	m.AssignedVehicleID = o.AssignedVehicleID
	m.AssignedDriverID = o.AssignedDriverID
	m.DurationHours = o.DurationHours
	m.TollsCost = o.TollsCost
	m.FerryCost = o.FerryCost
	m.Status = o.Status
}
