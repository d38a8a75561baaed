package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent_NoScope(t *testing.T) {
	id, ok := Current(context.Background())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)

	_, err := Require(context.Background())
	assert.ErrorIs(t, err, ErrNoTenant)

	assert.Panics(t, func() { MustCurrent(context.Background()) })
}

func TestEnter(t *testing.T) {
	tenantID := uuid.New()

	ctx, release := Enter(context.Background(), tenantID)

	id, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, tenantID, id)
	assert.Equal(t, tenantID.String(), logger.GetTenantID(ctx))

	release()

	_, ok = Current(ctx)
	assert.False(t, ok, "released scope must not be visible through the old context")

	// idempotent release
	assert.NotPanics(t, release)
}

func TestEnter_NilTenantDeniesAll(t *testing.T) {
	outer, releaseOuter := Enter(context.Background(), uuid.New())
	defer releaseOuter()

	inner, release := Enter(outer, uuid.Nil)
	defer release()

	_, ok := Current(inner)
	assert.False(t, ok, "a nil inner scope must shadow the outer tenant")
}

func TestEnter_NestingDoesNotLeak(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	ctxA, releaseA := Enter(context.Background(), tenantA)
	defer releaseA()

	ctxB, releaseB := Enter(ctxA, tenantB)
	id, ok := Current(ctxB)
	require.True(t, ok)
	assert.Equal(t, tenantB, id)

	releaseB()

	_, ok = Current(ctxB)
	assert.False(t, ok, "inner context must not fall back to the outer tenant after release")

	id, ok = Current(ctxA)
	require.True(t, ok)
	assert.Equal(t, tenantA, id)
}

func TestRun_SequentialTenants(t *testing.T) {
	tenants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	seen := make([]uuid.UUID, 0, len(tenants))
	var captured []context.Context

	for _, id := range tenants {
		err := Run(context.Background(), id, func(ctx context.Context) error {
			current, ok := Current(ctx)
			require.True(t, ok)
			seen = append(seen, current)
			captured = append(captured, ctx)
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, tenants, seen)
	for _, ctx := range captured {
		_, ok := Current(ctx)
		assert.False(t, ok)
	}
}

func TestRun_ReleasesOnPanic(t *testing.T) {
	var captured context.Context

	func() {
		defer func() {
			r := recover()
			assert.Equal(t, "boom", r)
		}()
		_ = Run(context.Background(), uuid.New(), func(ctx context.Context) error {
			captured = ctx
			panic("boom")
		})
	}()

	require.NotNil(t, captured)
	_, ok := Current(captured)
	assert.False(t, ok)
}

func TestRun_ReleasesOnCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	var captured context.Context

	err := Run(parent, uuid.New(), func(ctx context.Context) error {
		captured = ctx
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	_, ok := Current(captured)
	assert.False(t, ok)
}

func TestScope_ConcurrentUnitsOfWork(t *testing.T) {
	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := uuid.New()
			_ = Run(context.Background(), want, func(ctx context.Context) error {
				got, ok := Current(ctx)
				if !ok || got != want {
					errs <- "unit of work observed a foreign tenant"
				}
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidTenantID)

	_, err = ParseID(uuid.Nil.String())
	assert.ErrorIs(t, err, ErrInvalidTenantID)
}
