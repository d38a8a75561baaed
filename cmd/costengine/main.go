package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetcost/backend/internal/infrastructure/config"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// logs go to stderr so stdout stays machine readable
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	a, err := newApp(db.DB, cfg.CostEngine, log, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	switch command {
	case "calculate":
		err = a.calculate(ctx, args)
	case "seed-demo":
		err = a.seedDemo(ctx, args)
	case "list-tenants":
		err = a.listTenants(ctx, args)
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Error("Command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Fleet cost engine tool

Usage:
  costengine <command> [flags]

Commands:
  calculate     Run the cost engine for one tenant or every active tenant
                  --tenant <uuid|code>   tenant to calculate
                  --all-tenants          calculate every active tenant, one scope each
                  --period <YYYY-MM|current|previous>  (default current)
                  --dry-run              compute without persisting
                  --only-nonzero         omit snapshots with no cost and no rate
                  --include-breakdowns   include order breakdowns (default true)
  seed-demo     Create the demo allocation scenario
                  --tenant <code>        tenant code, created when missing
                  --name <name>          display name for a new tenant
                  --period <YYYY-MM>     month to seed (default 2026-01)
  list-tenants  List every tenant

Configuration is read from config.toml and FLEETCOST_* environment variables.`)
}
