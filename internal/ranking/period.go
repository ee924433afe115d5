package ranking

import (
	"fmt"
	"time"
)

// PeriodsPerYear fixes the ranking cycle: 26 two-week windows anchored at
// January 1. The leftover day (two in leap years) folds into period 26, so
// period arithmetic is total: the period before {year, 1} is always {year-1, 26}.
const PeriodsPerYear = 26

const periodLength = 14 * 24 * time.Hour

// Period identifies one two-week ranking window.
type Period struct {
	Year   int
	Number int // 1..PeriodsPerYear
}

// PeriodOf buckets a timestamp into its two-week window. Timestamps are
// normalized to UTC first, keeping the bucketing consistent with Bounds for
// completion times recorded in other zones.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	startOfYear := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	n := int(t.Sub(startOfYear)/periodLength) + 1
	if n > PeriodsPerYear {
		n = PeriodsPerYear
	}
	return Period{Year: t.Year(), Number: n}
}

// Previous returns the immediately preceding period, wrapping across years.
func (p Period) Previous() Period {
	if p.Number > 1 {
		return Period{Year: p.Year, Number: p.Number - 1}
	}
	return Period{Year: p.Year - 1, Number: PeriodsPerYear}
}

// Bounds returns the inclusive start and end of the period in UTC. The final
// period of a year absorbs the remainder days and ends at the year boundary.
func (p Period) Bounds() (time.Time, time.Time) {
	startOfYear := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start := startOfYear.Add(time.Duration(p.Number-1) * periodLength)
	var end time.Time
	if p.Number == PeriodsPerYear {
		end = time.Date(p.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
	} else {
		end = start.Add(periodLength).Add(-time.Second)
	}
	return start, end
}

// String renders the period identifier, e.g. "2026-BW05".
func (p Period) String() string {
	return fmt.Sprintf("%d-BW%02d", p.Year, p.Number)
}
