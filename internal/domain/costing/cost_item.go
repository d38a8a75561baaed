package costing

import (
	"strings"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CostCategory describes how a cost behaves with activity
type CostCategory string

const (
	CostCategoryFixed    CostCategory = "FIXED"
	CostCategoryVariable CostCategory = "VARIABLE"
	CostCategoryIndirect CostCategory = "INDIRECT"
)

// CostUnit is the natural unit a cost item is quoted in
type CostUnit string

const (
	CostUnitMonth CostUnit = "MONTH"
	CostUnitKM    CostUnit = "KM"
	CostUnitHour  CostUnit = "HOUR"
	CostUnitTrip  CostUnit = "TRIP"
)

// CostItem classifies the nature of a recurring cost
type CostItem struct {
	shared.TenantAggregateRoot
	Name     string
	Category CostCategory
	Unit     CostUnit
	IsActive bool
}

// NewCostItem creates an active cost item
func NewCostItem(name string, category CostCategory, unit CostUnit) (*CostItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost item name cannot be empty")
	}
	switch category {
	case CostCategoryFixed, CostCategoryVariable, CostCategoryIndirect:
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid cost item category")
	}
	switch unit {
	case CostUnitMonth, CostUnitKM, CostUnitHour, CostUnitTrip:
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid cost item unit")
	}

	return &CostItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		Name:                name,
		Category:            category,
		Unit:                unit,
		IsActive:            true,
	}, nil
}
