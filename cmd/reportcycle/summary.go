package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

// printSummary writes the end-of-run tables: one row per tenant, one row per
// worker artifact, and the totals.
func printSummary(w io.Writer, summary domain.RunSummary) {
	fmt.Fprintf(w, "Run %s (%s) on %s\n", summary.RunID, summary.Mode, summary.Today.Format(time.DateOnly))
	if summary.Mode == domain.ModeScheduled {
		fmt.Fprintf(w, "Due tenants: %d, chunk %d (size %d)\n", summary.DueTotal, summary.ChunkIndex, summary.ChunkSize)
	}

	if len(summary.Tenants) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Tenant", "Window", "State", "Error"})
		for _, t := range summary.Tenants {
			state := "-"
			if t.StateDay > 0 {
				state = fmt.Sprintf("day %d", t.StateDay)
			}
			tw.AppendRow(table.Row{t.Slug, formatWindow(t.Window), state, tenantError(t)})
		}
		tw.Render()
	}

	uploaded, skipped := summary.Counts()
	if len(summary.Workers) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Tenant", "Worker", "Artifact", "Outcome", "Reached", "Size", "Error"})
		for _, o := range summary.Workers {
			size := "-"
			if o.Size > 0 {
				size = humanize.Bytes(uint64(o.Size))
			}
			errText := ""
			if o.Err != nil {
				errText = o.Err.Error()
			}
			tw.AppendRow(table.Row{o.TenantSlug, workerLabel(o), o.Artifact, o.Stage, o.Reached, size, errText})
		}
		tw.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d uploaded", uploaded), fmt.Sprintf("%d skipped", skipped)})
		tw.Render()
	}

	if summary.Partial() {
		fmt.Fprintln(w, "Run finished with skipped work.")
	}
}

func printReminders(w io.Writer, result app.ReminderResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Due", "Sent", "Failed", "No contact"})
	tw.AppendRow(table.Row{result.Due, result.Sent, result.Failed, result.NoContact})
	tw.Render()
}

func formatWindow(win domain.Window) string {
	if win.Start.IsZero() {
		return "-"
	}
	return win.Start.Format(time.DateOnly) + " .. " + win.End.Format(time.DateOnly)
}

func tenantError(t domain.TenantOutcome) string {
	switch {
	case t.Err != nil:
		return t.Err.Error()
	case t.StateErr != nil:
		return "dispatch state: " + t.StateErr.Error()
	default:
		return ""
	}
}

func workerLabel(o domain.WorkerOutcome) string {
	if o.WorkerName == "" {
		return o.WorkerID
	}
	return o.WorkerName + " (" + o.WorkerID + ")"
}
