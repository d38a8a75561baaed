package tenant

import (
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

const (
	// Column is the tenant discriminator column on every tenant-owned table
	Column = "tenant_id"

	unscopedKey = "tenant:unscoped"
	appliedKey  = "tenant:applied"
)

// Guard is a GORM plugin that enforces tenant isolation at the statement level.
//
// Query, row, update and delete statements against a model with a tenant_id
// column are restricted to the ambient tenant. Without an ambient tenant they
// are restricted to nothing (WHERE 1 = 0). Create statements stamp the ambient
// tenant onto records whose tenant_id is zero; an explicit tenant_id is kept.
//
// Raw SQL is not inspected. Tenant-owned reads must go through Model or a
// typed destination so the schema is known; a source-scan test confines
// db.Raw, db.Exec and hook-skipping sessions to an allow-list, like Unscoped.
type Guard struct {
	column string
}

// NewGuard creates the tenant guard plugin
func NewGuard() *Guard {
	return &Guard{column: Column}
}

// Name implements gorm.Plugin
func (g *Guard) Name() string {
	return "tenant:guard"
}

// Initialize implements gorm.Plugin
func (g *Guard) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", g.filter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", g.filter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", g.filter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", g.filter); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:before_create", g.stamp)
}

// Enable registers the guard on db
func Enable(db *gorm.DB) error {
	return db.Use(NewGuard())
}

// Unscoped returns a session that bypasses the guard.
// Call sites are confined to an allow-list enforced by a source-scan test.
func Unscoped(db *gorm.DB) *gorm.DB {
	return db.Set(unscopedKey, true)
}

func isUnscoped(db *gorm.DB) bool {
	v, ok := db.Get(unscopedKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (g *Guard) tenantField(db *gorm.DB) *schema.Field {
	if db.Statement == nil || db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(g.column)
}

func (g *Guard) filter(db *gorm.DB) {
	if db.Error != nil || isUnscoped(db) || g.tenantField(db) == nil {
		return
	}
	stmt := db.Statement
	if _, done := stmt.Settings.Load(appliedKey); done {
		return
	}
	stmt.Settings.Store(appliedKey, true)

	var guard clause.Expression
	if id, ok := Current(stmt.Context); ok {
		guard = clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: g.column},
			Value:  id,
		}
	} else {
		guard = clause.Expr{SQL: "1 = 0"}
	}

	exprs := []clause.Expression{guard}
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok && len(where.Exprs) > 0 {
			// the caller's conditions are grouped so an OR cannot escape the guard
			exprs = []clause.Expression{clause.And(where.Exprs...), guard}
		}
	}
	c := stmt.Clauses["WHERE"]
	c.Name = "WHERE"
	c.Expression = clause.Where{Exprs: exprs}
	stmt.Clauses["WHERE"] = c
}

func (g *Guard) stamp(db *gorm.DB) {
	if db.Error != nil || isUnscoped(db) {
		return
	}
	field := g.tenantField(db)
	if field == nil {
		return
	}
	id, ok := Current(db.Statement.Context)

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			g.stampOne(db, field, reflect.Indirect(rv.Index(i)), id, ok)
		}
	case reflect.Struct:
		g.stampOne(db, field, rv, id, ok)
	}
}

func (g *Guard) stampOne(db *gorm.DB, field *schema.Field, rv reflect.Value, id uuid.UUID, ok bool) {
	ctx := db.Statement.Context
	if _, zero := field.ValueOf(ctx, rv); !zero {
		return
	}
	if !ok {
		_ = db.AddError(ErrNoTenant)
		return
	}
	if err := field.Set(ctx, rv, id); err != nil {
		_ = db.AddError(err)
	}
}
