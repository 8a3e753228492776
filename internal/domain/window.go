package domain

import "time"

// Window is the inclusive date interval covered by one report cycle. Both
// bounds are at start of day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window covers no day.
func (w Window) Empty() bool {
	return w.Start.After(w.End)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns t moved to day of month day. A day beyond the month's
// length is clamped to the month's last day; a day below 1 becomes 1.
func ClampDay(t time.Time, day int) time.Time {
	y, m, _ := t.Date()
	if day < 1 {
		day = 1
	}
	if last := DaysIn(y, m); day > last {
		day = last
	}
	h, mi, s := t.Clock()
	return time.Date(y, m, day, h, mi, s, t.Nanosecond(), t.Location())
}

// ShiftMonths moves t by n calendar months keeping its day of month, clamped
// to the target month's last day. Jan 31 shifted by one month is Feb 28 (29).
func ShiftMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	h, mi, s := t.Clock()
	shifted := time.Date(first.Year(), first.Month(), 1, h, mi, s, t.Nanosecond(), t.Location())
	return ClampDay(shifted, d)
}

// ResolveWindow computes the window of the cycle triggered on today.
//
// The window ends yesterday. With a recorded lastDispatchedDay it starts on
// that day one month back, which makes consecutive cycles contiguous. On the
// first cycle it starts the day after dispatchDay one month back.
func ResolveWindow(today time.Time, dispatchDay int, lastDispatchedDay *int) Window {
	today = StartOfDay(today)
	end := today.AddDate(0, 0, -1)
	previous := ShiftMonths(today, -1)

	if lastDispatchedDay != nil {
		return Window{Start: ClampDay(previous, *lastDispatchedDay), End: end}
	}
	return Window{Start: ClampDay(previous, dispatchDay).AddDate(0, 0, 1), End: end}
}
