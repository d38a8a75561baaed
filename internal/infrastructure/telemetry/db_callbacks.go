package telemetry

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type queryStartKey struct{ plugin string }

// registerTimed registers before/after callbacks around every core GORM
// operation. after receives the operation name and the elapsed time.
func registerTimed(db *gorm.DB, plugin string, after func(db *gorm.DB, op string, elapsed time.Duration)) error {
	key := queryStartKey{plugin: plugin}
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	done := func(op string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if start, ok := db.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			after(db, op, elapsed)
		}
	}
	name := func(phase, op string) string { return plugin + ":" + phase + "_" + op }

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(name("before", "create"), before),
		cb.Create().After("gorm:create").Register(name("after", "create"), done("INSERT")),
		cb.Query().Before("gorm:query").Register(name("before", "query"), before),
		cb.Query().After("gorm:query").Register(name("after", "query"), done("SELECT")),
		cb.Update().Before("gorm:update").Register(name("before", "update"), before),
		cb.Update().After("gorm:update").Register(name("after", "update"), done("UPDATE")),
		cb.Delete().Before("gorm:delete").Register(name("before", "delete"), before),
		cb.Delete().After("gorm:delete").Register(name("after", "delete"), done("DELETE")),
		cb.Row().Before("gorm:row").Register(name("before", "row"), before),
		cb.Row().After("gorm:row").Register(name("after", "row"), done("")),
		cb.Raw().Before("gorm:raw").Register(name("before", "raw"), before),
		cb.Raw().After("gorm:raw").Register(name("after", "raw"), done("")),
	)
}
