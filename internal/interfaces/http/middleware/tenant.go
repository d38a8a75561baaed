package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantIDKey is the gin context key of the resolved tenant
const TenantIDKey = "tenant_id"

// TenantQueryParam lets a superuser pick the tenant of a request
const TenantQueryParam = "tenant_id"

// TenantDirectory looks tenants up across tenants
type TenantDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error)
}

// TenantScope resolves the tenant of an authenticated request and runs the
// rest of the chain inside its tenant scope. The token's tenant is used; a
// superuser may name another one with ?tenant_id=. Any other caller naming a
// foreign tenant is refused. The scope is released when the handler returns,
// panics included.
func TenantScope(directory TenantDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, status, code, msg := resolveTenant(c)
		if status != 0 {
			abortWithError(c, status, code, msg)
			return
		}

		t, err := directory.FindByID(c.Request.Context(), tenantID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			abortWithError(c, http.StatusNotFound, dto.ErrCodeNotFound, "Tenant not found")
			return
		case err != nil:
			logger.RequestLogger(c).Error("Failed to load tenant", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to load tenant")
			return
		case !t.IsActive():
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Tenant is not active")
			return
		}

		ctx, release := tenant.Enter(c.Request.Context(), tenantID)
		defer release()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(TenantIDKey, tenantID)

		c.Next()
	}
}

func resolveTenant(c *gin.Context) (id uuid.UUID, status int, code, msg string) {
	tokenTenant, hasTokenTenant := uuidFromGin(c, JWTTenantIDKey)

	requested := c.Query(TenantQueryParam)
	if requested == "" {
		if !hasTokenTenant {
			return uuid.Nil, http.StatusBadRequest, dto.ErrCodeValidationRequired, "tenant_id is required"
		}
		return tokenTenant, 0, "", ""
	}

	requestedID, err := tenant.ParseID(requested)
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, dto.ErrCodeValidationFormat, "tenant_id must be a UUID"
	}
	if requestedID != tokenTenant && !IsSuperuser(c) {
		return uuid.Nil, http.StatusForbidden, dto.ErrCodeForbidden, "Access to another tenant is forbidden"
	}
	return requestedID, 0, "", ""
}

// GetTenantID returns the tenant resolved by TenantScope
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	return uuidFromGin(c, TenantIDKey)
}
