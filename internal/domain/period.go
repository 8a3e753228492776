package domain

import (
	"fmt"
	"time"
)

// Locale selects month names and unit labels of a statement.
type Locale string

const (
	LocaleGerman  Locale = "de"
	LocaleEnglish Locale = "en"
)

var monthNames = map[Locale][12]string{
	LocaleGerman: {
		"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember",
	},
	LocaleEnglish: {
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
}

var hoursSuffix = map[Locale]string{
	LocaleGerman:  " Std.",
	LocaleEnglish: " h",
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	_, ok := monthNames[l]
	return ok
}

// MonthName returns the localized name of m. Unknown locales fall back to German.
func (l Locale) MonthName(m time.Month) string {
	names, ok := monthNames[l]
	if !ok {
		names = monthNames[LocaleGerman]
	}
	return names[m-1]
}

// HoursSuffix is appended to formatted durations in statements.
func (l Locale) HoursSuffix() string {
	if s, ok := hoursSuffix[l]; ok {
		return s
	}
	return hoursSuffix[LocaleGerman]
}

// PeriodLabel names the reporting period that contains t, e.g. "Mai-2024".
func (l Locale) PeriodLabel(t time.Time) string {
	return fmt.Sprintf("%s-%d", l.MonthName(t.Month()), t.Year())
}
