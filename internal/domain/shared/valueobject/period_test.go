package valueobject

import (
	"errors"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPeriod(t *testing.T) {
	t.Run("normalizes bounds to UTC midnight", func(t *testing.T) {
		p, err := NewPeriod(time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC), date(2026, 1, 31))
		require.NoError(t, err)
		assert.Equal(t, date(2026, 1, 1), p.Start())
		assert.Equal(t, date(2026, 1, 31), p.End())
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := NewPeriod(date(2026, 2, 1), date(2026, 1, 1))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_PERIOD", domainErr.Code)
	})

	t.Run("single day period is valid", func(t *testing.T) {
		p, err := NewPeriod(date(2026, 3, 5), date(2026, 3, 5))
		require.NoError(t, err)
		assert.Equal(t, 1, p.Days())
	})
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(2024, time.February)
	assert.Equal(t, date(2024, 2, 1), p.Start())
	assert.Equal(t, date(2024, 2, 29), p.End())

	p = MonthPeriod(2025, time.December)
	assert.Equal(t, date(2025, 12, 31), p.End())
}

func TestPreviousMonth(t *testing.T) {
	p := PreviousMonth(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, date(2025, 12, 1), p.Start())
	assert.Equal(t, date(2025, 12, 31), p.End())

	p = PreviousMonth(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, date(2026, 2, 1), p.Start())
	assert.Equal(t, date(2026, 2, 28), p.End())
}

func TestParseMonth(t *testing.T) {
	p, err := ParseMonth("2026-04")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 4, 1), p.Start())
	assert.Equal(t, date(2026, 4, 30), p.End())

	for _, bad := range []string{"2026-13", "2026/04", "abc", ""} {
		_, err := ParseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, 31, p.Days())

	_, err = ParsePeriod("2026-01-32", "2026-02-01")
	assert.Error(t, err)

	_, err = ParsePeriod("2026-02-01", "2026-01-01")
	assert.Error(t, err)
}

func TestPeriod_Overlaps(t *testing.T) {
	jan := MonthPeriod(2026, time.January)

	tests := []struct {
		name  string
		other Period
		want  bool
	}{
		{"same month", jan, true},
		{"touching last day", MustNewPeriod(date(2026, 1, 31), date(2026, 2, 10)), true},
		{"touching first day", MustNewPeriod(date(2025, 12, 1), date(2026, 1, 1)), true},
		{"spanning", MustNewPeriod(date(2025, 12, 1), date(2026, 3, 1)), true},
		{"inside", MustNewPeriod(date(2026, 1, 10), date(2026, 1, 12)), true},
		{"before", MustNewPeriod(date(2025, 12, 1), date(2025, 12, 31)), false},
		{"after", MustNewPeriod(date(2026, 2, 1), date(2026, 2, 28)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jan.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(jan))
		})
	}
}

func TestPeriod_KeyAndContains(t *testing.T) {
	p := MonthPeriod(2026, time.January)
	assert.Equal(t, "2026-01-01_2026-01-31", p.Key())
	assert.True(t, p.Contains(time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2026, 2, 1)))
}
