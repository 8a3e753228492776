package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

func TestParseSignedInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"01:00:00", time.Hour},
		{"-01:30:00", -90 * time.Minute},
		{"8", 8 * time.Hour},
		{"7:45", 7*time.Hour + 45*time.Minute},
		{"00:00:29", 0},
		{"00:00:30", time.Minute},
		{"-00:00:30", -time.Minute},
		{"00:01:29.9", time.Minute},
		{"00:01:30.0", 2 * time.Minute},
		{"125:05:00", 125*time.Hour + 5*time.Minute},
		{" 02:15:00 ", 2*time.Hour + 15*time.Minute},
		{"::", 0},
	}

	for _, tc := range cases {
		got, err := domain.ParseSignedInterval(tc.in)
		if err != nil {
			t.Errorf("ParseSignedInterval(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSignedInterval(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseSignedInterval_Invalid(t *testing.T) {
	for _, in := range []string{
		"abc", "1:2:3:4", "--01:00", "01:xx:00", "NaN",
		"+01:00:00", "1e1:00:00", "01:-5", ".5", "1.", "Inf",
		"3000000000:00:00",
	} {
		if _, err := domain.ParseSignedInterval(in); err == nil {
			t.Errorf("ParseSignedInterval(%q) expected error", in)
		}
	}
}

func TestFormatSigned(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{30 * time.Minute, "00:30"},
		{-90 * time.Minute, "-01:30"},
		{125*time.Hour + 5*time.Minute, "125:05"},
		{59*time.Second + 59*time.Minute, "00:59"},
		{-90 * time.Second, "-00:01"},
	}

	for _, tc := range cases {
		if got := domain.FormatSigned(tc.in); got != tc.want {
			t.Errorf("FormatSigned(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseThenFormat_RoundTrip(t *testing.T) {
	d, err := domain.ParseSignedInterval("-01:30:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := domain.FormatSigned(d); got != "-01:30" {
		t.Errorf("round trip = %q, want %q", got, "-01:30")
	}
}

func TestAccumulate(t *testing.T) {
	entries := []domain.TimeEntry{
		{Date: day(2024, 3, 1), Net: "01:00:00", Overtime: "00:15:00", Break: "00:30:00"},
		{Date: day(2024, 3, 2), Net: "-00:30:00", Overtime: "-00:45:00", Break: "01:00:00"},
	}

	totals, err := domain.Accumulate(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := domain.FormatSigned(totals.Net); got != "00:30" {
		t.Errorf("net total = %q, want %q", got, "00:30")
	}
	if got := domain.FormatSigned(totals.Overtime); got != "-00:30" {
		t.Errorf("overtime total = %q, want %q", got, "-00:30")
	}
}

func TestAccumulate_SumsRoundedValues(t *testing.T) {
	// Each entry rounds up to one minute before summing.
	entries := []domain.TimeEntry{
		{Net: "00:00:30"},
		{Net: "00:00:30"},
		{Net: "00:00:30"},
	}

	totals, err := domain.Accumulate(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Net != 3*time.Minute {
		t.Errorf("net total = %v, want %v", totals.Net, 3*time.Minute)
	}
}

func TestAccumulate_MalformedEntry(t *testing.T) {
	entries := []domain.TimeEntry{
		{Date: day(2024, 3, 1), Net: "01:00:00"},
		{Date: day(2024, 3, 2), Net: "eight hours"},
	}
	if _, err := domain.Accumulate(entries); err == nil {
		t.Fatal("expected error for malformed net duration")
	}
}

func TestParseSignedInterval_LargestValue(t *testing.T) {
	got, err := domain.ParseSignedInterval("-2562047:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := -2562047 * time.Hour; got != want {
		t.Errorf("ParseSignedInterval = %v, want %v", got, want)
	}
}

func TestAccumulate_Overflow(t *testing.T) {
	entries := []domain.TimeEntry{
		{Date: day(2024, 3, 1), Net: "2000000:00:00"},
		{Date: day(2024, 3, 2), Net: "2000000:00:00"},
	}
	if _, err := domain.Accumulate(entries); err == nil {
		t.Fatal("expected error for a total beyond the duration range")
	}

	negative := []domain.TimeEntry{
		{Date: day(2024, 3, 1), Overtime: "-2000000:00:00"},
		{Date: day(2024, 3, 2), Overtime: "-2000000:00:00"},
	}
	if _, err := domain.Accumulate(negative); err == nil {
		t.Fatal("expected error for a negative total beyond the duration range")
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
