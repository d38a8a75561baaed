package persistence

import (
	"testing"

	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder(" asc "))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder("ASC; DROP TABLE vehicles;--"))
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "created_at"},
		{"plate", "plate"},
		{"  make ", "make"},
		{"PLATE", "created_at"},
		{"plate; DROP TABLE vehicles;--", "created_at"},
		{"plate desc", "created_at"},
		{"tenant_id", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, VehicleSortFields, "created_at"))
		})
	}
}

func TestApplyListFilter_SearchOrderAndPage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormVehicleRepository(db)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())

	for _, v := range [][3]string{
		{"TRK-003", "Volvo", "FH16"},
		{"TRK-001", "Scania", "R450"},
		{"VAN-002", "Volvo", "FL"},
	} {
		vehicle, err := fleet.NewVehicle(v[0], v[1], v[2])
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, vehicle))
	}

	volvo, err := repo.FindAll(ctx, shared.Filter{Search: "volvo", OrderBy: "plate", OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, volvo, 2)
	assert.Equal(t, "TRK-003", volvo[0].Plate)
	assert.Equal(t, "VAN-002", volvo[1].Plate)

	count, err := repo.Count(ctx, shared.Filter{Search: "TRK"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	page, err := repo.FindAll(ctx, shared.Filter{Page: 2, PageSize: 2, OrderBy: "plate", OrderDir: "ASC"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "VAN-002", page[0].Plate)

	// an unknown column falls back to created_at instead of reaching SQL
	_, err = repo.FindAll(ctx, shared.Filter{OrderBy: "plate; DROP TABLE vehicles"})
	assert.NoError(t, err)
}
