package domain

import (
	"fmt"
	"time"
)

const (
	displayDate = "02.01.2006"
	displayTime = "15:04"
)

// ReportRow is one pre-formatted statement line.
type ReportRow struct {
	Date     string
	Status   string
	Start    string
	End      string
	Break    string
	Net      string
	Overtime string
}

// Statement is the formatted content of one worker report.
type Statement struct {
	Rows   []ReportRow
	Totals Totals
}

// NewStatement formats entries for display in loc and accumulates their totals.
func NewStatement(entries []TimeEntry, loc *time.Location, locale Locale) (Statement, error) {
	totals, err := Accumulate(entries)
	if err != nil {
		return Statement{}, err
	}

	suffix := locale.HoursSuffix()
	rows := make([]ReportRow, 0, len(entries))
	for _, e := range entries {
		pause, err := ParseSignedInterval(e.Break)
		if err != nil {
			return Statement{}, fmt.Errorf("entry %s break: %w", e.Date.Format(time.DateOnly), err)
		}
		// Already validated by Accumulate.
		net, _ := ParseSignedInterval(e.Net)
		overtime, _ := ParseSignedInterval(e.Overtime)

		rows = append(rows, ReportRow{
			Date:     e.Date.Format(displayDate),
			Status:   e.Status,
			Start:    clockTime(e.StartedAt, loc),
			End:      clockTime(e.EndedAt, loc),
			Break:    FormatSigned(pause) + suffix,
			Net:      FormatSigned(net) + suffix,
			Overtime: FormatSigned(overtime) + suffix,
		})
	}

	return Statement{Rows: rows, Totals: totals}, nil
}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(displayTime)
}

// ReportContext is everything a Renderer needs to produce one statement.
type ReportContext struct {
	MonthName     string
	Year          int
	CompanyName   string
	Worker        Worker
	Rows          []ReportRow
	TotalNet      string
	TotalOvertime string
	CreationDate  string
}

// NewReportContext assembles the render context for worker over period.
func NewReportContext(tenant Tenant, worker Worker, st Statement, period, created time.Time, locale Locale) ReportContext {
	suffix := locale.HoursSuffix()
	return ReportContext{
		MonthName:     locale.MonthName(period.Month()),
		Year:          period.Year(),
		CompanyName:   tenant.Name,
		Worker:        worker,
		Rows:          st.Rows,
		TotalNet:      FormatSigned(st.Totals.Net) + suffix,
		TotalOvertime: FormatSigned(st.Totals.Overtime) + suffix,
		CreationDate:  created.Format(displayDate),
	}
}
