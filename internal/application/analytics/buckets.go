// Package analytics reads persisted cost engine output: KPI views over rate
// snapshots, the run history and its spreadsheet export.
package analytics

import (
	"strings"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
)

// Grain is the bucket size of a trend series
type Grain string

const (
	GrainMonth Grain = "month"
	GrainWeek  Grain = "week"
)

// ErrInvalidGrain is returned for a grain other than month or week
var ErrInvalidGrain = shared.NewDomainError("INVALID_GRAIN", "grain must be month or week")

// ParseGrain parses a grain; an empty value means month
func ParseGrain(s string) (Grain, error) {
	switch g := Grain(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GrainMonth, nil
	case GrainMonth, GrainWeek:
		return g, nil
	default:
		return "", ErrInvalidGrain
	}
}

// Buckets splits period into consecutive buckets of grain
func Buckets(period valueobject.Period, grain Grain) []valueobject.Period {
	if grain == GrainWeek {
		return WeekBuckets(period)
	}
	return MonthBuckets(period)
}

// MonthBuckets splits period into calendar months, the first and last clipped to period
func MonthBuckets(period valueobject.Period) []valueobject.Period {
	var buckets []valueobject.Period
	cur := period.Start()
	for !cur.After(period.End()) {
		monthEnd := time.Date(cur.Year(), cur.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
		buckets = append(buckets, valueobject.MustNewPeriod(cur, minDate(monthEnd, period.End())))
		cur = monthEnd.AddDate(0, 0, 1)
	}
	return buckets
}

// WeekBuckets splits period into Monday to Sunday weeks, the first and last clipped to period
func WeekBuckets(period valueobject.Period) []valueobject.Period {
	var buckets []valueobject.Period
	cur := period.Start()
	for !cur.After(period.End()) {
		// days until Sunday; time.Sunday is 0
		toSunday := (7 - int(cur.Weekday())) % 7
		weekEnd := cur.AddDate(0, 0, toSunday)
		buckets = append(buckets, valueobject.MustNewPeriod(cur, minDate(weekEnd, period.End())))
		cur = weekEnd.AddDate(0, 0, 1)
	}
	return buckets
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
