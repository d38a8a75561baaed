// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain stays free of ORM tags.
//
// Every model with a tenant_id column is guarded by the tenant plugin:
// reads, updates and deletes are limited to the ambient tenant and creates
// are stamped with it.
//
// Structure:
//   - base.go: base persistence models
//   - tenancy.go: the tenant directory
//   - fleet.go: vehicles, drivers and transport orders
//   - costing.go: cost centers, items and postings
//   - snapshot.go: engine output (rate snapshots and order breakdowns)
//   - recompute_job.go: scheduler audit records
package models

// All returns every persisted model in migration order
func All() []any {
	return []any{
		&TenantModel{},
		&VehicleModel{},
		&DriverModel{},
		&TransportOrderModel{},
		&CostCenterModel{},
		&CostItemModel{},
		&CostPostingModel{},
		&CostRateSnapshotModel{},
		&OrderCostBreakdownModel{},
		&RecomputeJobModel{},
	}
}
