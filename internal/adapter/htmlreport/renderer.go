// Package htmlreport renders statement markup with html/template.
package htmlreport

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// DefaultTemplate is the built-in statement layout.
//
//go:embed templates/report.html
var DefaultTemplate string

// Compile-time check: Renderer implements domain.Renderer.
var _ domain.Renderer = (*Renderer)(nil)

// Labels are the fixed texts of a statement.
type Labels struct {
	Title    string
	Date     string
	Status   string
	Start    string
	End      string
	Break    string
	Net      string
	Overtime string
	Total    string
	Created  string
	IDNumber string
	Vacation string
}

var labels = map[domain.Locale]Labels{
	domain.LocaleGerman: {
		Title:    "Zeitnachweis",
		Date:     "Datum",
		Status:   "Status",
		Start:    "Beginn",
		End:      "Ende",
		Break:    "Pause",
		Net:      "Netto",
		Overtime: "Überstunden",
		Total:    "Gesamt",
		Created:  "Erstellt am",
		IDNumber: "Personalnr.",
		Vacation: "Resturlaub",
	},
	domain.LocaleEnglish: {
		Title:    "Time statement",
		Date:     "Date",
		Status:   "Status",
		Start:    "Start",
		End:      "End",
		Break:    "Break",
		Net:      "Net",
		Overtime: "Overtime",
		Total:    "Total",
		Created:  "Created on",
		IDNumber: "Staff no.",
		Vacation: "Vacation left",
	},
}

// view is the template data of one statement.
type view struct {
	Lang          string
	Labels        Labels
	Logo          template.URL
	MonthName     string
	Year          int
	CompanyName   string
	WorkerName    string
	IDNumber      string
	Vacation      string
	Rows          []domain.ReportRow
	TotalNet      string
	TotalOvertime string
	CreationDate  string
}

// Renderer fills the statement template.
type Renderer struct {
	tmpl   *template.Template
	logo   template.URL
	locale domain.Locale
}

// New parses text as the statement template. logo may be empty; otherwise it
// is inlined as a data URI so the document needs no network access.
func New(text string, logo []byte, locale domain.Locale) (*Renderer, error) {
	tmpl, err := template.New("report").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "assets.template", Reason: err.Error()}
	}

	return &Renderer{tmpl: tmpl, logo: DataURI(logo), locale: locale}, nil
}

// DataURI encodes b as a base64 data URI with a sniffed content type.
func DataURI(b []byte) template.URL {
	if len(b) == 0 {
		return ""
	}
	mediaType := http.DetectContentType(b)
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b))
}

// Render executes the template for rc.
func (r *Renderer) Render(_ context.Context, rc domain.ReportContext) ([]byte, error) {
	l, ok := labels[r.locale]
	if !ok {
		l = labels[domain.LocaleGerman]
	}

	v := view{
		Lang:          string(r.locale),
		Labels:        l,
		Logo:          r.logo,
		MonthName:     rc.MonthName,
		Year:          rc.Year,
		CompanyName:   rc.CompanyName,
		WorkerName:    rc.Worker.Name,
		Rows:          rc.Rows,
		TotalNet:      rc.TotalNet,
		TotalOvertime: rc.TotalOvertime,
		CreationDate:  rc.CreationDate,
	}
	if rc.Worker.IDNumber != nil {
		v.IDNumber = *rc.Worker.IDNumber
	}
	if rc.Worker.VacationBalance != nil {
		v.Vacation = strconv.FormatFloat(*rc.Worker.VacationBalance, 'f', 1, 64)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("executing report template: %w", err)
	}
	return buf.Bytes(), nil
}
