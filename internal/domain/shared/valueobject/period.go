package valueobject

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared"
)

// DateLayout is the wire and storage layout for calendar dates
const DateLayout = "2006-01-02"

// MonthLayout is the layout of the YYYY-MM month shorthand
const MonthLayout = "2006-01"

// Period is an inclusive calendar date range [start, end].
// It is immutable; both bounds are normalized to UTC midnight.
type Period struct {
	start time.Time
	end   time.Time
}

// DateOf truncates t to its calendar date at UTC midnight
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewPeriod creates a period; start must not be after end
func NewPeriod(start, end time.Time) (Period, error) {
	start, end = DateOf(start), DateOf(end)
	if start.IsZero() || end.IsZero() {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", "period_start and period_end are required")
	}
	if start.After(end) {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", "period_start must be before or equal to period_end")
	}
	return Period{start: start, end: end}, nil
}

// MustNewPeriod is NewPeriod for trusted inputs; it panics on an inverted range
func MustNewPeriod(start, end time.Time) Period {
	p, err := NewPeriod(start, end)
	if err != nil {
		panic(err)
	}
	return p
}

// MonthPeriod returns the full calendar month
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{start: start, end: start.AddDate(0, 1, -1)}
}

// PreviousMonth returns the previous full calendar month relative to now
func PreviousMonth(now time.Time) Period {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfCurrent.AddDate(0, -1, 0)
	return MonthPeriod(prev.Year(), prev.Month())
}

// CurrentMonth returns the calendar month containing now
func CurrentMonth(now time.Time) Period {
	return MonthPeriod(now.Year(), now.Month())
}

// ParseMonth parses the YYYY-MM shorthand into the full calendar month
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return Period{}, shared.NewDomainError("INVALID_MONTH", "Invalid month format. Use YYYY-MM")
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", "Invalid date format. Use YYYY-MM-DD")
	}
	return t, nil
}

// ParsePeriod parses explicit period bounds
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(s, e)
}

// Start returns the first day of the period
func (p Period) Start() time.Time {
	return p.start
}

// End returns the last day of the period
func (p Period) End() time.Time {
	return p.end
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.start.IsZero() && p.end.IsZero()
}

// Overlaps reports whether two inclusive ranges share at least one day
func (p Period) Overlaps(other Period) bool {
	return !p.start.After(other.end) && !p.end.Before(other.start)
}

// Contains reports whether the date of t falls inside the period
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.start) && !d.After(p.end)
}

// Equal reports whether both bounds match
func (p Period) Equal(other Period) bool {
	return p.start.Equal(other.start) && p.end.Equal(other.end)
}

// Days returns the number of calendar days in the period
func (p Period) Days() int {
	return int(p.end.Sub(p.start).Hours()/24) + 1
}

// Key returns a stable identifier used for lock and cache keys
func (p Period) Key() string {
	return p.start.Format(DateLayout) + "_" + p.end.Format(DateLayout)
}

// String returns a human-readable representation
func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.start.Format(DateLayout), p.end.Format(DateLayout))
}
