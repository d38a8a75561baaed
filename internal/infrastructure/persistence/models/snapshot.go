package models

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostRateSnapshotModel stores one computed rate. The unique index enforces
// one row per natural key.
type CostRateSnapshotModel struct {
	BaseModel
	TenantID       uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_cost_rate_snapshots_key,priority:1"`
	PeriodStart    time.Time              `gorm:"type:date;not null;uniqueIndex:idx_cost_rate_snapshots_key,priority:2"`
	PeriodEnd      time.Time              `gorm:"type:date;not null;uniqueIndex:idx_cost_rate_snapshots_key,priority:3"`
	CostCenterID   uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_cost_rate_snapshots_key,priority:4"`
	BasisUnit      costing.BasisUnit      `gorm:"type:varchar(10);not null;uniqueIndex:idx_cost_rate_snapshots_key,priority:5"`
	CostCenterName string                 `gorm:"type:varchar(200);not null"`
	CostCenterType costing.CostCenterType `gorm:"type:varchar(20);not null"`
	TotalCost      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TotalUnits     decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Rate           decimal.Decimal        `gorm:"type:decimal(18,6);not null"`
	Status         costing.SnapshotStatus `gorm:"type:varchar(20);not null"`
	EngineVersion  string                 `gorm:"type:varchar(50);not null"`
}

// TableName returns the table name for GORM
func (CostRateSnapshotModel) TableName() string {
	return "cost_rate_snapshots"
}

// ToDomain converts the persistence model to a domain snapshot
func (m *CostRateSnapshotModel) ToDomain() *costing.CostRateSnapshot {
	return &costing.CostRateSnapshot{
		BaseEntity:     m.BaseModel.ToDomain(),
		TenantID:       m.TenantID,
		Period:         periodOf(m.PeriodStart, m.PeriodEnd),
		CostCenterID:   m.CostCenterID,
		CostCenterName: m.CostCenterName,
		CostCenterType: m.CostCenterType,
		BasisUnit:      m.BasisUnit,
		TotalCost:      m.TotalCost,
		TotalUnits:     m.TotalUnits,
		Rate:           m.Rate,
		Status:         m.Status,
		EngineVersion:  m.EngineVersion,
	}
}

// FromDomain populates the persistence model from a domain snapshot
func (m *CostRateSnapshotModel) FromDomain(s *costing.CostRateSnapshot) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.TenantID = s.TenantID
	m.PeriodStart = s.Period.Start()
	m.PeriodEnd = s.Period.End()
	m.CostCenterID = s.CostCenterID
	m.CostCenterName = s.CostCenterName
	m.CostCenterType = s.CostCenterType
	m.BasisUnit = s.BasisUnit
	m.TotalCost = s.TotalCost
	m.TotalUnits = s.TotalUnits
	m.Rate = s.Rate
	m.Status = s.Status
	m.EngineVersion = s.EngineVersion
}

// OrderCostBreakdownModel stores one order allocation. The unique index enforces
// one row per natural key.
type OrderCostBreakdownModel struct {
	BaseModel
	TenantID         uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_order_cost_breakdowns_key,priority:1"`
	TransportOrderID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_order_cost_breakdowns_key,priority:2"`
	PeriodStart      time.Time               `gorm:"type:date;not null;uniqueIndex:idx_order_cost_breakdowns_key,priority:3"`
	PeriodEnd        time.Time               `gorm:"type:date;not null;uniqueIndex:idx_order_cost_breakdowns_key,priority:4"`
	OrderReference   string                  `gorm:"type:varchar(50);not null"`
	VehicleAlloc     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	OverheadAlloc    decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	DirectCost       decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	DriverAlloc      decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	TotalCost        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Revenue          decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Profit           decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Margin           decimal.Decimal         `gorm:"type:decimal(9,4);not null"`
	Status           costing.BreakdownStatus `gorm:"type:varchar(20);not null"`
	EngineVersion    string                  `gorm:"type:varchar(50);not null"`
}

// TableName returns the table name for GORM
func (OrderCostBreakdownModel) TableName() string {
	return "order_cost_breakdowns"
}

// ToDomain converts the persistence model to a domain breakdown
func (m *OrderCostBreakdownModel) ToDomain() *costing.OrderCostBreakdown {
	return &costing.OrderCostBreakdown{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		Period:           periodOf(m.PeriodStart, m.PeriodEnd),
		TransportOrderID: m.TransportOrderID,
		OrderReference:   m.OrderReference,
		VehicleAlloc:     m.VehicleAlloc,
		OverheadAlloc:    m.OverheadAlloc,
		DirectCost:       m.DirectCost,
		DriverAlloc:      m.DriverAlloc,
		TotalCost:        m.TotalCost,
		Revenue:          m.Revenue,
		Profit:           m.Profit,
		Margin:           m.Margin,
		Status:           m.Status,
		EngineVersion:    m.EngineVersion,
	}
}

// FromDomain populates the persistence model from a domain breakdown
func (m *OrderCostBreakdownModel) FromDomain(b *costing.OrderCostBreakdown) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.TenantID = b.TenantID
	m.TransportOrderID = b.TransportOrderID
	m.PeriodStart = b.Period.Start()
	m.PeriodEnd = b.Period.End()
	m.OrderReference = b.OrderReference
	m.VehicleAlloc = b.VehicleAlloc
	m.OverheadAlloc = b.OverheadAlloc
	m.DirectCost = b.DirectCost
	m.DriverAlloc = b.DriverAlloc
	m.TotalCost = b.TotalCost
	m.Revenue = b.Revenue
	m.Profit = b.Profit
	m.Margin = b.Margin
	m.Status = b.Status
	m.EngineVersion = b.EngineVersion
}
