package evv

import (
	"fmt"
	"time"
)

// UnitsPeriod governs how an authorization's quota resets.
type UnitsPeriod string

const (
	PeriodWeekly  UnitsPeriod = "weekly"
	PeriodMonthly UnitsPeriod = "monthly"
	PeriodYearly  UnitsPeriod = "yearly"
	PeriodISP     UnitsPeriod = "isp_period"
)

// Window is an inclusive [Start, End] date range at day granularity.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within the window.
func (w Window) Contains(d time.Time) bool {
	d = dateOnly(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// WindowFor returns the quota window containing serviceDate for the given period
// type. Weeks start on Sunday. The ISP dates bound the isp_period variant only;
// calendar variants are independent of the plan range.
func WindowFor(period UnitsPeriod, serviceDate, ispStart, ispEnd time.Time) (Window, error) {
	d := dateOnly(serviceDate)

	switch period {
	case PeriodWeekly:
		start := d.AddDate(0, 0, -int(d.Weekday()))
		return Window{Start: start, End: start.AddDate(0, 0, 6)}, nil

	case PeriodMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil

	case PeriodYearly:
		start := time.Date(d.Year(), 1, 1, 0, 0, 0, 0, d.Location())
		return Window{Start: start, End: start.AddDate(1, 0, -1)}, nil

	case PeriodISP:
		return Window{Start: dateOnly(ispStart), End: dateOnly(ispEnd)}, nil

	default:
		return Window{}, &ValidationError{Field: "unitsPeriod", Reason: fmt.Sprintf("unknown period %q", period)}
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
