package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/application/demo"
	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/fleetcost/backend/internal/infrastructure/config"
	"github.com/fleetcost/backend/internal/infrastructure/persistence"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type cliFixture struct {
	db  *gorm.DB
	app *app
	out *bytes.Buffer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	out := &bytes.Buffer{}
	a, err := newApp(db, config.CostEngineConfig{
		EngineVersion:  "cli-test",
		OverheadPolicy: string(costing.OverheadPolicyEarliestCreated),
		LockTTL:        time.Minute,
	}, zap.NewNop(), out)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	return &cliFixture{db: db, app: a, out: out}
}

func (f *cliFixture) seed(t *testing.T, code string) *tenancy.Tenant {
	t.Helper()
	require.NoError(t, f.app.seedDemo(context.Background(), []string{"--tenant", code}))
	f.out.Reset()
	found, err := f.app.tenants.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return found
}

func decodeRun(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()
	var view map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &view), out.String())
	return view
}

func TestParsePeriodArg(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	p, err := parsePeriodArg("current", now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MonthPeriod(2026, 3), p)

	p, err = parsePeriodArg("", now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MonthPeriod(2026, 3), p)

	p, err = parsePeriodArg("Previous", now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MonthPeriod(2026, 2), p)

	p, err = parsePeriodArg("2025-12", now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MonthPeriod(2025, 12), p)

	_, err = parsePeriodArg("12/2025", now)
	assert.Error(t, err)
}

func TestSeedDemo_CreatesTenantAndPreviews(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, f.app.seedDemo(context.Background(), []string{"--tenant", "demo", "--name", "Demo Haulage"}))

	created, err := f.app.tenants.FindByCode(context.Background(), "DEMO")
	require.NoError(t, err)
	assert.Equal(t, "Demo Haulage", created.Name)

	view := decodeRun(t, f.out)
	meta := view["meta"].(map[string]any)
	assert.Equal(t, created.ID.String(), meta["tenant_id"])
	assert.Equal(t, false, meta["persisted"])
	assert.Len(t, view["breakdowns"].([]any), 1)

	// a second seed of the same tenant is refused
	err = f.app.seedDemo(context.Background(), []string{"--tenant", "demo"})
	assert.ErrorIs(t, err, demo.ErrAlreadySeeded)
}

func TestSeedDemo_Validation(t *testing.T) {
	f := newCLIFixture(t)

	assert.Error(t, f.app.seedDemo(context.Background(), nil))
	assert.Error(t, f.app.seedDemo(context.Background(), []string{"--tenant", "x", "--period", "January"}))
}

func TestCalculate_SingleTenantByCodeAndID(t *testing.T) {
	f := newCLIFixture(t)
	seeded := f.seed(t, "acme")

	require.NoError(t, f.app.calculate(context.Background(), []string{"--tenant", "acme", "--period", "2026-01"}))
	view := decodeRun(t, f.out)
	meta := view["meta"].(map[string]any)
	assert.Equal(t, true, meta["persisted"])
	assert.Equal(t, "cli-test", meta["engine_version"])
	assert.Equal(t, "2026-01-01", meta["period_start"])
	summary := view["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_snapshots"])

	// persisted rows are visible inside the tenant scope only
	snapshots := persistence.NewGormSnapshotRepository(f.db)
	ctx := testutil.EnterTenant(t, seeded.ID)
	rows, err := snapshots.ListSnapshotsForPeriod(ctx, valueobject.MonthPeriod(2026, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	f.out.Reset()
	require.NoError(t, f.app.calculate(context.Background(), []string{
		"--tenant", seeded.ID.String(), "--period", "2026-01", "--dry-run", "--include-breakdowns=false",
	}))
	view = decodeRun(t, f.out)
	assert.Equal(t, false, view["meta"].(map[string]any)["persisted"])
	assert.Empty(t, view["breakdowns"].([]any))
}

func TestCalculate_AllTenants(t *testing.T) {
	f := newCLIFixture(t)
	acme := f.seed(t, "acme")
	beta := f.seed(t, "beta")

	require.NoError(t, f.app.calculate(context.Background(), []string{"--all-tenants", "--period", "previous"}))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &views), f.out.String())
	require.Len(t, views, 2)
	ids := []any{views[0]["meta"].(map[string]any)["tenant_id"], views[1]["meta"].(map[string]any)["tenant_id"]}
	assert.ElementsMatch(t, []any{acme.ID.String(), beta.ID.String()}, ids)
	// previous relative to the fixed clock is January
	assert.Equal(t, "2026-01-31", views[0]["meta"].(map[string]any)["period_end"])

	// every run released its scope
	_, active := tenant.Current(context.Background())
	assert.False(t, active)
}

func TestCalculate_Validation(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "acme")

	tests := []struct {
		name string
		args []string
	}{
		{"no tenant", []string{"--period", "2026-01"}},
		{"both selectors", []string{"--tenant", "acme", "--all-tenants"}},
		{"unknown tenant", []string{"--tenant", "nobody"}},
		{"bad period", []string{"--tenant", "acme", "--period", "2026-13"}},
		{"unknown flag", []string{"--tenant", "acme", "--basis", "KM"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, f.app.calculate(context.Background(), tt.args))
		})
	}
}

func TestListTenants(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "beta")
	f.seed(t, "acme")

	require.NoError(t, f.app.listTenants(context.Background(), nil))
	lines := bytes.Split(bytes.TrimSpace(f.out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "CODE")
	assert.Contains(t, string(lines[1]), "ACME")
	assert.Contains(t, string(lines[2]), "BETA")
}
