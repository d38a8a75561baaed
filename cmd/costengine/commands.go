package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fleetcost/backend/internal/application/costengine"
	costingapp "github.com/fleetcost/backend/internal/application/costing"
	"github.com/fleetcost/backend/internal/application/demo"
	fleetapp "github.com/fleetcost/backend/internal/application/fleet"
	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/fleetcost/backend/internal/infrastructure/config"
	"github.com/fleetcost/backend/internal/infrastructure/lock"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what the commands share
type app struct {
	tenants *persistence.GormTenantRepository
	service *costengine.Service
	seeder  *demo.Seeder
	log     *zap.Logger
	out     io.Writer
	now     func() time.Time
}

func newApp(db *gorm.DB, cfg config.CostEngineConfig, log *zap.Logger, out io.Writer) (*app, error) {
	policy, err := costing.ParseOverheadPolicy(cfg.OverheadPolicy)
	if err != nil {
		return nil, err
	}

	vehicles := persistence.NewGormVehicleRepository(db)
	drivers := persistence.NewGormDriverRepository(db)
	orders := persistence.NewGormTransportOrderRepository(db)
	centers := persistence.NewGormCostCenterRepository(db)
	items := persistence.NewGormCostItemRepository(db)
	postings := persistence.NewGormCostPostingRepository(db)

	engine := costengine.NewEngine(centers, postings, orders, costengine.EngineConfig{
		EngineVersion:  cfg.EngineVersion,
		OverheadPolicy: policy,
	})
	return &app{
		tenants: persistence.NewGormTenantRepository(db),
		service: costengine.NewService(engine, persistence.NewGormSnapshotRepository(db),
			costengine.WithLocker(lock.NewLocalLocker(lock.Options{TTL: cfg.LockTTL, Wait: cfg.LockWait})),
			costengine.WithLogger(log),
		),
		seeder: demo.NewSeeder(
			fleetapp.NewVehicleService(vehicles),
			fleetapp.NewTransportOrderService(orders, vehicles, drivers),
			costingapp.NewCostCenterService(centers, vehicles, drivers),
			costingapp.NewCostItemService(items),
			costingapp.NewCostPostingService(postings, centers, items),
		),
		log: log,
		out: out,
		now: time.Now,
	}, nil
}

// parsePeriodArg accepts YYYY-MM, current or previous
func parsePeriodArg(s string, now time.Time) (valueobject.Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current":
		return valueobject.CurrentMonth(now), nil
	case "previous":
		return valueobject.PreviousMonth(now), nil
	default:
		return valueobject.ParseMonth(s)
	}
}

// resolveTenant finds a tenant by UUID, falling back to its code
func (a *app) resolveTenant(ctx context.Context, ref string) (*tenancy.Tenant, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("--tenant is required")
	}
	var (
		t   *tenancy.Tenant
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		t, err = a.tenants.FindByID(ctx, id)
	} else {
		t, err = a.tenants.FindByCode(ctx, ref)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("tenant %q not found", ref)
	}
	return t, err
}

func (a *app) calculate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("calculate", flag.ContinueOnError)
	fs.SetOutput(a.out)
	tenantRef := fs.String("tenant", "", "Tenant UUID or code")
	allTenants := fs.Bool("all-tenants", false, "Calculate every active tenant")
	periodArg := fs.String("period", "current", "YYYY-MM, current or previous")
	dryRun := fs.Bool("dry-run", false, "Compute without persisting")
	onlyNonZero := fs.Bool("only-nonzero", false, "Omit snapshots with no cost and no rate")
	includeBreakdowns := fs.Bool("include-breakdowns", true, "Include order breakdowns")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *allTenants == (*tenantRef != "") {
		return errors.New("exactly one of --tenant or --all-tenants is required")
	}
	period, err := parsePeriodArg(*periodArg, a.now())
	if err != nil {
		return err
	}
	in := costengine.RunInput{Period: period, DryRun: *dryRun, Trigger: telemetry.RunTriggerCommand}
	opts := costengine.ViewOptions{OnlyNonZero: *onlyNonZero, IncludeBreakdowns: *includeBreakdowns}

	if !*allTenants {
		t, err := a.resolveTenant(ctx, *tenantRef)
		if err != nil {
			return err
		}
		view, err := a.runTenant(ctx, t, in, opts)
		if err != nil {
			return err
		}
		return a.writeJSON(view)
	}

	active, err := a.tenants.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	views := make([]costengine.RunView, 0, len(active))
	var errs []error
	for i := range active {
		view, err := a.runTenant(ctx, &active[i], in, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", active[i].Code, err))
			continue
		}
		views = append(views, view)
	}
	if err := a.writeJSON(views); err != nil {
		return err
	}
	a.log.Info("Calculated tenants",
		zap.Int("succeeded", len(views)),
		zap.Int("failed", len(errs)),
		zap.String("period", period.String()),
	)
	return errors.Join(errs...)
}

// runTenant runs the engine inside the tenant's own scope
func (a *app) runTenant(ctx context.Context, t *tenancy.Tenant, in costengine.RunInput, opts costengine.ViewOptions) (costengine.RunView, error) {
	var view costengine.RunView
	err := tenant.Run(ctx, t.ID, func(ctx context.Context) error {
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), t.ID.String())
		result, err := a.service.Run(ctx, in)
		if err != nil {
			return err
		}
		view = costengine.NewRunView(result, opts)
		logger.L(ctx).Info("Cost engine run finished",
			zap.String("tenant_code", t.Code),
			zap.Int("snapshots", result.Summary.TotalSnapshots),
			zap.Int("breakdowns", result.Summary.TotalBreakdowns),
			zap.Bool("persisted", result.Persisted),
		)
		return nil
	})
	return view, err
}

func (a *app) seedDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)
	fs.SetOutput(a.out)
	code := fs.String("tenant", "", "Tenant code")
	name := fs.String("name", "", "Display name for a new tenant")
	periodArg := fs.String("period", "2026-01", "Month to seed, YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*code) == "" {
		return errors.New("--tenant is required")
	}
	period, err := valueobject.ParseMonth(*periodArg)
	if err != nil {
		return err
	}

	t, err := a.tenants.FindByCode(ctx, *code)
	if errors.Is(err, shared.ErrNotFound) {
		displayName := *name
		if displayName == "" {
			displayName = "Demo " + strings.ToUpper(*code)
		}
		if t, err = tenancy.NewTenant(*code, displayName); err != nil {
			return err
		}
		if err = a.tenants.Save(ctx, t); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		a.log.Info("Tenant created", zap.String("tenant_id", t.ID.String()), zap.String("code", t.Code))
	}
	if err != nil {
		return err
	}

	return tenant.Run(ctx, t.ID, func(ctx context.Context) error {
		if _, err := a.seeder.Seed(ctx, demo.Options{Period: period}); err != nil {
			return err
		}
		// show what the engine makes of it without persisting
		result, err := a.service.Run(ctx, costengine.RunInput{Period: period, DryRun: true, Trigger: telemetry.RunTriggerCommand})
		if err != nil {
			return err
		}
		return a.writeJSON(costengine.NewRunView(result, costengine.ViewOptions{IncludeBreakdowns: true}))
	})
}

func (a *app) listTenants(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	fs.SetOutput(a.out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tenants, err := a.tenants.FindAll(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tSTATUS")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Code, t.Name, t.Status)
	}
	return w.Flush()
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
