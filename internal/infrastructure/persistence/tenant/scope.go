// Package tenant makes the acting tenant an ambient property of one unit of work.
//
// A unit of work (an HTTP request or a background job) enters a scope once:
//
//	ctx, release := tenant.Enter(ctx, tenantID)
//	defer release()
//
// Every GORM statement executed with that context is filtered to the tenant by
// the Guard plugin. A statement executed without an active scope matches no rows
// for tenant-owned tables, so a forgotten scope fails closed.
package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
)

// ErrNoTenant is returned when an operation requires an ambient tenant and none is active
var ErrNoTenant = errors.New("tenant: no tenant in scope")

// ErrInvalidTenantID is returned when a tenant identifier cannot be parsed
var ErrInvalidTenantID = errors.New("tenant: invalid tenant id")

type scopeKey struct{}

// Scope is the ambient tenant of one unit of work.
// It becomes inactive once released, even for contexts derived from it.
type Scope struct {
	id     uuid.UUID
	active atomic.Bool
}

// ID returns the scoped tenant
func (s *Scope) ID() uuid.UUID {
	return s.id
}

// Active reports whether the scope has not been released
func (s *Scope) Active() bool {
	return s != nil && s.active.Load()
}

// Enter establishes id as the ambient tenant of the returned context.
// The release func must be called exactly once when the unit of work ends;
// extra calls are no-ops. Entering uuid.Nil yields a deny-all scope that still
// shadows any outer scope.
func Enter(ctx context.Context, id uuid.UUID) (context.Context, func()) {
	s := &Scope{id: id}
	s.active.Store(id != uuid.Nil)

	ctx = context.WithValue(ctx, scopeKey{}, s)
	if id != uuid.Nil {
		ctx = logger.TagTenant(ctx, id.String())
	}

	var once sync.Once
	return ctx, func() {
		once.Do(func() { s.active.Store(false) })
	}
}

// Run executes fn inside a scope for id and releases it on every exit path,
// including a panic in fn.
func Run(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	scoped, release := Enter(ctx, id)
	defer release()
	return fn(scoped)
}

// Current returns the ambient tenant, or false when no active scope exists.
// Only the innermost scope is consulted; a released inner scope does not
// reveal the outer one.
func Current(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || !s.Active() {
		return uuid.Nil, false
	}
	return s.id, true
}

// Require returns the ambient tenant or ErrNoTenant
func Require(ctx context.Context) (uuid.UUID, error) {
	id, ok := Current(ctx)
	if !ok {
		return uuid.Nil, ErrNoTenant
	}
	return id, nil
}

// MustCurrent returns the ambient tenant and panics when none is active.
// Use it only where a missing scope is a programming error.
func MustCurrent(ctx context.Context) uuid.UUID {
	id, err := Require(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID parses a tenant identifier
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}
