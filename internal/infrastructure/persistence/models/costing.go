package models

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostCenterModel is the persistence model for the CostCenter domain entity
type CostCenterModel struct {
	TenantAggregateModel
	Name        string                 `gorm:"type:varchar(200);not null"`
	Type        costing.CostCenterType `gorm:"type:varchar(20);not null;index"`
	VehicleID   *uuid.UUID             `gorm:"type:uuid;index"`
	DriverID    *uuid.UUID             `gorm:"type:uuid;index"`
	IsActive    bool                   `gorm:"not null;default:true"`
	Description string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CostCenterModel) TableName() string {
	return "cost_centers"
}

// ToDomain converts the persistence model to a domain CostCenter
func (m *CostCenterModel) ToDomain() *costing.CostCenter {
	return &costing.CostCenter{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Type:                m.Type,
		VehicleID:           m.VehicleID,
		DriverID:            m.DriverID,
		IsActive:            m.IsActive,
		Description:         m.Description,
	}
}

// FromDomain populates the persistence model from a domain CostCenter
func (m *CostCenterModel) FromDomain(c *costing.CostCenter) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.Type = c.Type
	m.VehicleID = c.VehicleID
	m.DriverID = c.DriverID
	m.IsActive = c.IsActive
	m.Description = c.Description
}

// CostItemModel is the persistence model for the CostItem domain entity
type CostItemModel struct {
	TenantAggregateModel
	Name     string               `gorm:"type:varchar(200);not null"`
	Category costing.CostCategory `gorm:"type:varchar(20);not null"`
	Unit     costing.CostUnit     `gorm:"type:varchar(20);not null"`
	IsActive bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CostItemModel) TableName() string {
	return "cost_items"
}

// ToDomain converts the persistence model to a domain CostItem
func (m *CostItemModel) ToDomain() *costing.CostItem {
	return &costing.CostItem{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Category:            m.Category,
		Unit:                m.Unit,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain CostItem
func (m *CostItemModel) FromDomain(i *costing.CostItem) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.Name = i.Name
	m.Category = i.Category
	m.Unit = i.Unit
	m.IsActive = i.IsActive
}

// CostPostingModel is the persistence model for the CostPosting domain entity
type CostPostingModel struct {
	TenantAggregateModel
	CostItemID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CostCenterID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PeriodStart  time.Time       `gorm:"type:date;not null;index"`
	PeriodEnd    time.Time       `gorm:"type:date;not null;index"`
	Notes        string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CostPostingModel) TableName() string {
	return "cost_postings"
}

// ToDomain converts the persistence model to a domain CostPosting
func (m *CostPostingModel) ToDomain() *costing.CostPosting {
	return &costing.CostPosting{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		CostItemID:          m.CostItemID,
		CostCenterID:        m.CostCenterID,
		Amount:              m.Amount,
		Period:              periodOf(m.PeriodStart, m.PeriodEnd),
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain CostPosting
func (m *CostPostingModel) FromDomain(p *costing.CostPosting) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.CostItemID = p.CostItemID
	m.CostCenterID = p.CostCenterID
	m.Amount = p.Amount
	m.PeriodStart = p.Period.Start()
	m.PeriodEnd = p.Period.End()
	m.Notes = p.Notes
}

// periodOf rebuilds a period from stored bounds. Stored rows always satisfy start <= end.
func periodOf(start, end time.Time) valueobject.Period {
	p, err := valueobject.NewPeriod(start.UTC(), end.UTC())
	if err != nil {
		return valueobject.Period{}
	}
	return p
}
