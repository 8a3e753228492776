package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

func TestNewStatement(t *testing.T) {
	start := time.Date(2024, 3, 4, 7, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	entries := []domain.TimeEntry{
		{
			Date: day(2024, 3, 4), Status: "Arbeit",
			StartedAt: &start, EndedAt: &end,
			Break: "00:30:00", Net: "08:00:00", Overtime: "00:15:00",
		},
		{Date: day(2024, 3, 5), Status: "Urlaub"},
	}

	st, err := domain.NewStatement(entries, time.UTC, domain.LocaleGerman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(st.Rows))
	}
	want := domain.ReportRow{
		Date: "04.03.2024", Status: "Arbeit", Start: "07:30", End: "16:00",
		Break: "00:30 Std.", Net: "08:00 Std.", Overtime: "00:15 Std.",
	}
	if st.Rows[0] != want {
		t.Errorf("row 0 = %+v, want %+v", st.Rows[0], want)
	}
	if st.Rows[1].Start != "" || st.Rows[1].End != "" {
		t.Errorf("row 1 times = %q/%q, want empty", st.Rows[1].Start, st.Rows[1].End)
	}
	if st.Rows[1].Net != "00:00 Std." {
		t.Errorf("row 1 net = %q, want %q", st.Rows[1].Net, "00:00 Std.")
	}
	if st.Totals.Net != 8*time.Hour {
		t.Errorf("net total = %v, want 8h", st.Totals.Net)
	}
}

func TestNewStatement_MalformedBreak(t *testing.T) {
	entries := []domain.TimeEntry{{Date: day(2024, 3, 4), Break: "lunch"}}

	if _, err := domain.NewStatement(entries, time.UTC, domain.LocaleGerman); err == nil {
		t.Fatal("expected error for malformed break")
	}
}

func TestNewReportContext(t *testing.T) {
	tenant := domain.NewTenant("t-1", "Acme GmbH", "acme", "", 20)
	worker := domain.Worker{ID: "w-1", Name: "Jane Doe"}
	st := domain.Statement{Totals: domain.Totals{Net: 90 * time.Minute, Overtime: -15 * time.Minute}}
	period := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	rc := domain.NewReportContext(tenant, worker, st, period, created, domain.LocaleEnglish)

	if rc.MonthName != "May" || rc.Year != 2024 {
		t.Errorf("period = %s %d, want May 2024", rc.MonthName, rc.Year)
	}
	if rc.CompanyName != "Acme GmbH" {
		t.Errorf("CompanyName = %q", rc.CompanyName)
	}
	if rc.TotalNet != "01:30 h" {
		t.Errorf("TotalNet = %q, want %q", rc.TotalNet, "01:30 h")
	}
	if rc.TotalOvertime != "-00:15 h" {
		t.Errorf("TotalOvertime = %q, want %q", rc.TotalOvertime, "-00:15 h")
	}
	if rc.CreationDate != "20.06.2024" {
		t.Errorf("CreationDate = %q, want %q", rc.CreationDate, "20.06.2024")
	}
}

func TestLocale(t *testing.T) {
	may := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	if got := domain.LocaleGerman.PeriodLabel(may); got != "Mai-2024" {
		t.Errorf("German PeriodLabel = %q, want %q", got, "Mai-2024")
	}
	if got := domain.LocaleEnglish.PeriodLabel(may); got != "May-2024" {
		t.Errorf("English PeriodLabel = %q, want %q", got, "May-2024")
	}
	if got := domain.Locale("fr").MonthName(time.March); got != "März" {
		t.Errorf("fallback MonthName = %q, want %q", got, "März")
	}
	if domain.Locale("fr").Valid() {
		t.Error(`locale "fr" should be invalid`)
	}
}
