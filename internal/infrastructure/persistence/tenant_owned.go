package persistence

import (
	"context"
	"errors"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// saveTenantOwned inserts model when no row with id is visible to the ambient
// tenant, otherwise updates every column except the owner and creation time.
// On insert the guard stamps tenant_id; callers copy it back to the aggregate.
func saveTenantOwned(ctx context.Context, db *gorm.DB, prototype, model any, id uuid.UUID) error {
	var count int64
	if err := db.WithContext(ctx).Model(prototype).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.WithContext(ctx).Create(model).Error
	}
	return db.WithContext(ctx).Model(model).Select("*").Omit("tenant_id", "created_at").Updates(model).Error
}

// notFound maps gorm's missing-row error to the domain error
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
