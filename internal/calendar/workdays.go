package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CountWorkingDays walks the inclusive date range and counts days that are
// neither weekend nor listed in holidays (keyed by YYYY-MM-DD).
func CountWorkingDays(start, end time.Time, holidays map[string]struct{}) decimal.Decimal {
	count := decimal.Zero
	one := decimal.NewFromInt(1)

	for d := truncateToDate(start); !d.After(truncateToDate(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, isHoliday := holidays[d.Format(dateLayout)]; isHoliday {
			continue
		}
		count = count.Add(one)
	}
	return count
}

// RangesOverlap reports whether two inclusive date ranges intersect. A nil
// end means the range is open-ended (a sabbatical with no return date).
func RangesOverlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	aS, bS := truncateToDate(aStart), truncateToDate(bStart)

	switch {
	case aEnd == nil && bEnd == nil:
		return true
	case aEnd == nil:
		return !truncateToDate(*bEnd).Before(aS)
	case bEnd == nil:
		return !truncateToDate(*aEnd).Before(bS)
	}
	return !truncateToDate(*aEnd).Before(bS) && !truncateToDate(*bEnd).Before(aS)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
