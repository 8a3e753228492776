package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// intervalComponent is one digit field of an interval, optionally fractional.
var intervalComponent = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// maxIntervalMinutes is the largest whole-minute count a time.Duration holds.
const maxIntervalMinutes = math.MaxInt64 / int64(time.Minute)

// ParseSignedInterval parses interval text of the form [-]H[:M[:S]] into a
// duration. Missing parts count as zero and seconds may be fractional. The
// absolute value is rounded to the nearest whole minute, ties away from zero,
// before the sign is reapplied. Empty text yields zero.
func ParseSignedInterval(text string) (time.Duration, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, nil
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("interval %q: too many components", text)
	}

	weights := [3]float64{3600, 60, 1}
	var seconds float64
	for i, part := range parts {
		if part == "" {
			continue
		}
		if !intervalComponent.MatchString(part) {
			return 0, fmt.Errorf("interval %q: invalid component %q", text, part)
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("interval %q: invalid component %q", text, part)
		}
		seconds += v * weights[i]
	}

	minutes := math.Round(seconds / 60)
	if minutes > float64(maxIntervalMinutes) {
		return 0, fmt.Errorf("interval %q: out of range", text)
	}
	d := time.Duration(minutes) * time.Minute
	if negative {
		d = -d
	}
	return d, nil
}

// FormatSigned renders d as [-]HH:MM. The absolute value is floored to whole
// minutes; hours have at least two digits and no upper bound.
func FormatSigned(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// Totals holds the accumulated durations of one statement.
type Totals struct {
	Net      time.Duration
	Overtime time.Duration
}

// Accumulate sums net and overtime of entries in order. Break durations are
// not accumulated.
func Accumulate(entries []TimeEntry) (Totals, error) {
	var totals Totals
	for _, e := range entries {
		net, err := ParseSignedInterval(e.Net)
		if err != nil {
			return Totals{}, fmt.Errorf("entry %s net: %w", e.Date.Format(time.DateOnly), err)
		}
		overtime, err := ParseSignedInterval(e.Overtime)
		if err != nil {
			return Totals{}, fmt.Errorf("entry %s overtime: %w", e.Date.Format(time.DateOnly), err)
		}
		if totals.Net, err = addDurations(totals.Net, net); err != nil {
			return Totals{}, fmt.Errorf("entry %s net: %w", e.Date.Format(time.DateOnly), err)
		}
		if totals.Overtime, err = addDurations(totals.Overtime, overtime); err != nil {
			return Totals{}, fmt.Errorf("entry %s overtime: %w", e.Date.Format(time.DateOnly), err)
		}
	}
	return totals, nil
}

// addDurations returns a+b, or an error when the sum overflows.
func addDurations(a, b time.Duration) (time.Duration, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, errors.New("total out of range")
	}
	return sum, nil
}
