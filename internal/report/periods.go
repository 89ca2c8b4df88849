package report

import (
	"fmt"
	"time"

	"taxibook/internal/core"
)

// Period is an inclusive [Start, End] reporting window.
type Period struct {
	Start time.Time
	End   time.Time
}

func dayStart(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dayEnd(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 999000000, time.UTC)
}

// MonthlyRange covers one calendar month. Month is 1-indexed.
func MonthlyRange(year, month int) Period {
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return Period{
		Start: dayStart(year, time.Month(month), 1),
		End:   dayEnd(year, time.Month(month), lastDay),
	}
}

// AnnualRange covers one calendar year.
func AnnualRange(year int) Period {
	return Period{
		Start: dayStart(year, time.January, 1),
		End:   dayEnd(year, time.December, 31),
	}
}

// CustomRange widens arbitrary boundary dates to day-start and day-end.
func CustomRange(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s before %s",
			core.ErrInvalidRange, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return Period{
		Start: dayStart(start.Year(), start.Month(), start.Day()),
		End:   dayEnd(end.Year(), end.Month(), end.Day()),
	}, nil
}

// Contains reports whether t falls inside the period, both bounds
// inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
