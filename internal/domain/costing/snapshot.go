package costing

import (
	"strings"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasisUnit is the denominator that turns a total cost into a rate
type BasisUnit string

const (
	BasisUnitKM      BasisUnit = "KM"
	BasisUnitHour    BasisUnit = "HOUR"
	BasisUnitTrip    BasisUnit = "TRIP"
	BasisUnitRevenue BasisUnit = "REVENUE"
)

// IsValid reports whether b is a known basis unit
func (b BasisUnit) IsValid() bool {
	switch b {
	case BasisUnitKM, BasisUnitHour, BasisUnitTrip, BasisUnitRevenue:
		return true
	}
	return false
}

// IsActivity reports whether the unit measures physical activity rather than money
func (b BasisUnit) IsActivity() bool {
	return b == BasisUnitKM || b == BasisUnitHour || b == BasisUnitTrip
}

// ParseBasisUnit parses a basis unit case-insensitively
func ParseBasisUnit(s string) (BasisUnit, error) {
	b := BasisUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", shared.NewDomainError("INVALID_BASIS_UNIT", "basis_unit must be one of KM, HOUR, TRIP, REVENUE")
	}
	return b, nil
}

// SnapshotStatus tells whether a rate could be derived
type SnapshotStatus string

const (
	SnapshotStatusOK              SnapshotStatus = "OK"
	SnapshotStatusMissingActivity SnapshotStatus = "MISSING_ACTIVITY"
)

// SnapshotKey is the natural key of a rate snapshot within a tenant
type SnapshotKey struct {
	Period       valueobject.Period
	CostCenterID uuid.UUID
	BasisUnit    BasisUnit
}

// CostRateSnapshot is the computed rate of one cost center for one period
type CostRateSnapshot struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	Period         valueobject.Period
	CostCenterID   uuid.UUID
	CostCenterName string
	CostCenterType CostCenterType
	BasisUnit      BasisUnit
	TotalCost      decimal.Decimal
	TotalUnits     decimal.Decimal
	Rate           decimal.Decimal
	Status         SnapshotStatus
	EngineVersion  string
}

// Key returns the snapshot's natural key
func (s *CostRateSnapshot) Key() SnapshotKey {
	return SnapshotKey{Period: s.Period, CostCenterID: s.CostCenterID, BasisUnit: s.BasisUnit}
}

// HasActivity reports whether the rate is usable for allocation
func (s *CostRateSnapshot) HasActivity() bool {
	return s.Status == SnapshotStatusOK
}
