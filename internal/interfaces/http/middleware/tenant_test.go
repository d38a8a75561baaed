package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	tenants map[uuid.UUID]*tenancy.Tenant
	err     error
}

func (f *fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func newDirectory(t *testing.T, tenants ...*tenancy.Tenant) *fakeDirectory {
	t.Helper()
	d := &fakeDirectory{tenants: map[uuid.UUID]*tenancy.Tenant{}}
	for _, tn := range tenants {
		d.tenants[tn.ID] = tn
	}
	return d
}

func mustTenant(t *testing.T, code string) *tenancy.Tenant {
	t.Helper()
	tn, err := tenancy.NewTenant(code, code+" Logistics")
	require.NoError(t, err)
	return tn
}

// authAs stands in for JWTAuth
func authAs(tenantID uuid.UUID, superuser bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(JWTUserIDKey, uuid.New())
		c.Set(JWTSuperuserKey, superuser)
		if tenantID != uuid.Nil {
			c.Set(JWTTenantIDKey, tenantID)
		}
		c.Next()
	}
}

func tenantRouter(dir TenantDirectory, auth gin.HandlerFunc, seen *context.Context) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), auth, TenantScope(dir))
	r.GET("/scoped", func(c *gin.Context) {
		*seen = c.Request.Context()
		id, err := tenant.Require(c.Request.Context())
		if err != nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": id.String()})
	})
	return r
}

func TestTenantScope_UsesTokenTenant(t *testing.T) {
	acme := mustTenant(t, "ACME")
	var seen context.Context
	r := tenantRouter(newDirectory(t, acme), authAs(acme.ID, false), &seen)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/scoped", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, acme.ID.String(), testutil.DecodeJSON(t, w)["tenant_id"])

	// released once the request completes
	_, ok := tenant.Current(seen)
	assert.False(t, ok)
}

func TestTenantScope_SameTenantQueryAllowed(t *testing.T) {
	acme := mustTenant(t, "ACME")
	var seen context.Context
	r := tenantRouter(newDirectory(t, acme), authAs(acme.ID, false), &seen)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/scoped?tenant_id="+acme.ID.String(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantScope_ForeignTenantForbidden(t *testing.T) {
	acme, other := mustTenant(t, "ACME"), mustTenant(t, "OTHER")
	var seen context.Context
	r := tenantRouter(newDirectory(t, acme, other), authAs(acme.ID, false), &seen)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/scoped?tenant_id="+other.ID.String(), nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
}

func TestTenantScope_SuperuserOverride(t *testing.T) {
	other := mustTenant(t, "OTHER")
	var seen context.Context
	r := tenantRouter(newDirectory(t, other), authAs(uuid.Nil, true), &seen)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/scoped?tenant_id="+other.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, other.ID.String(), testutil.DecodeJSON(t, w)["tenant_id"])
}

func TestTenantScope_Errors(t *testing.T) {
	inactive := mustTenant(t, "SLEEPY")
	inactive.Status = tenancy.TenantStatusInactive
	unknown := uuid.New()

	tests := []struct {
		name   string
		dir    TenantDirectory
		auth   gin.HandlerFunc
		query  string
		status int
		code   string
	}{
		{"superuser without tenant", newDirectory(t), authAs(uuid.Nil, true), "", http.StatusBadRequest, dto.ErrCodeValidationRequired},
		{"malformed tenant", newDirectory(t), authAs(uuid.Nil, true), "?tenant_id=abc", http.StatusBadRequest, dto.ErrCodeValidationFormat},
		{"nil tenant", newDirectory(t), authAs(uuid.Nil, true), "?tenant_id=" + uuid.Nil.String(), http.StatusBadRequest, dto.ErrCodeValidationFormat},
		{"unknown tenant", newDirectory(t), authAs(unknown, false), "", http.StatusNotFound, dto.ErrCodeNotFound},
		{"inactive tenant", newDirectory(t, inactive), authAs(inactive.ID, false), "", http.StatusForbidden, dto.ErrCodeForbidden},
		{"directory failure", &fakeDirectory{err: errors.New("db down")}, authAs(unknown, false), "", http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen context.Context
			w := testutil.PerformRequest(t, tenantRouter(tt.dir, tt.auth, &seen), http.MethodGet, "/scoped"+tt.query, nil, nil)
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
			assert.Nil(t, seen)
		})
	}
}

func TestTenantScope_ReleasedAfterPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	acme := mustTenant(t, "ACME")
	var seen context.Context

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) { c.AbortWithStatus(http.StatusInternalServerError) }))
	r.Use(authAs(acme.ID, false), TenantScope(newDirectory(t, acme)))
	r.GET("/boom", func(c *gin.Context) {
		seen = c.Request.Context()
		panic("boom")
	})

	w := testutil.PerformRequest(t, r, http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, seen)
	_, ok := tenant.Current(seen)
	assert.False(t, ok)
}
