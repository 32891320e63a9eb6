// Package chunk decides how a report date range is split into request windows.
package chunk

import (
	"time"

	"github.com/lojaops/gerencial-vendas/internal/model"
)

// Strategy is the retrieval plan for a date range.
type Strategy int

const (
	// SingleShot requests the whole range at once.
	SingleShot Strategy = iota
	// Monthly requests one calendar month per window.
	Monthly
	// Weekly requests seven-day windows.
	Weekly
)

// MonthlyThresholdDays is the span above which a failed single shot is split by month.
const MonthlyThresholdDays = 30

func (s Strategy) String() string {
	switch s {
	case SingleShot:
		return "single_shot"
	case Monthly:
		return "monthly"
	case Weekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// Plan picks a strategy from the outcome of the single-shot attempt.
// firstAttemptLines is the number of non-empty lines the single shot decoded to
// (0 when it failed). More than a header line means the single shot is accepted.
func Plan(r model.DateRange, firstAttemptLines int) Strategy {
	if firstAttemptLines > 1 {
		return SingleShot
	}
	if r.Days() > MonthlyThresholdDays {
		return Monthly
	}
	return Weekly
}

// Windows enumerates the request windows for a strategy in chronological order.
func Windows(r model.DateRange, s Strategy) []model.DateRange {
	switch s {
	case Monthly:
		return monthlyWindows(r)
	case Weekly:
		return weeklyWindows(r)
	default:
		return []model.DateRange{r}
	}
}

// monthlyWindows emits [first of month, min(last of month, end)] per month.
// The first window is clamped to the requested start so no day outside the
// range is requested.
func monthlyWindows(r model.DateRange) []model.DateRange {
	var out []model.DateRange
	current := r.Start
	for !current.After(r.End) {
		monthStart := firstOfMonth(current)
		if monthStart.Before(r.Start) {
			monthStart = r.Start
		}
		monthEnd := lastOfMonth(current)
		if monthEnd.After(r.End) {
			monthEnd = r.End
		}
		if !monthStart.After(monthEnd) {
			out = append(out, model.DateRange{Start: monthStart, End: monthEnd})
		}
		current = firstOfMonth(current).AddDate(0, 1, 0)
	}
	return out
}

// weeklyWindows emits [current, min(current+6, end)] until past the end.
func weeklyWindows(r model.DateRange) []model.DateRange {
	var out []model.DateRange
	current := r.Start
	for !current.After(r.End) {
		weekEnd := current.AddDate(0, 0, 6)
		if weekEnd.After(r.End) {
			weekEnd = r.End
		}
		out = append(out, model.DateRange{Start: current, End: weekEnd})
		current = weekEnd.AddDate(0, 0, 1)
	}
	return out
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// lastOfMonth relies on time.Date normalising day 0 of the next month,
// which rolls December into January and handles leap years.
func lastOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
