package clean

import "time"

// Window is the inclusive calendar-date range records must fall within to be
// retained.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a Window from ISO dates. The zone of the inputs is
// irrelevant; only the calendar date matters.
func NewWindow(start, end string) (Window, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return Window{}, err
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Contains reports whether d is inside the window, inclusive on both ends.
// ok carries the "was a date parsed at all" result from ParseDate; a record
// with no parseable date is never in-window.
func (w Window) Contains(d time.Time, ok bool) bool {
	if !ok {
		return false
	}
	day := dateOnly(d)
	return !day.Before(dateOnly(w.Start)) && !day.After(dateOnly(w.End))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
