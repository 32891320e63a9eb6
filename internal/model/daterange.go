// Package model holds the domain types shared by the retrieval, normalization and storage layers.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the wire format for calendar dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// DateRange is an inclusive [Start, End] pair of calendar dates at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Date truncates t to its calendar day at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateRange builds a range from two dates. Times of day are discarded.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = Date(start), Date(end)
	if start.After(end) {
		return DateRange{}, eris.Errorf("model: invalid date range %s > %s",
			start.Format(DateLayout), end.Format(DateLayout))
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two YYYY-MM-DD strings into a range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, eris.Wrapf(err, "model: parse start date %q", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, eris.Wrapf(err, "model: parse end date %q", end)
	}
	return NewDateRange(s, e)
}

// Days returns End - Start in whole days (0 for a single-day range).
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
