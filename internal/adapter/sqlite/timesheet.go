package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

func (r *Repository) ListWorkers(ctx context.Context, tenantID string) ([]domain.Worker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, id_number, vacation_balance
		 FROM workers WHERE tenant_id = ? ORDER BY name, id`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workers: %w", err)
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		var w domain.Worker
		var idNumber sql.NullString
		var balance sql.NullFloat64
		if err := rows.Scan(&w.ID, &w.Name, &idNumber, &balance); err != nil {
			return nil, fmt.Errorf("scanning worker: %w", err)
		}
		if idNumber.Valid {
			w.IDNumber = &idNumber.String
		}
		if balance.Valid {
			w.VacationBalance = &balance.Float64
		}
		workers = append(workers, w)
	}

	return workers, rows.Err()
}

// ListTimeEntries returns the entries of a worker with start <= date <= end,
// compared on calendar dates, ascending by date.
func (r *Repository) ListTimeEntries(ctx context.Context, tenantID, workerID string, start, end time.Time) ([]domain.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_date, status, started_at, ended_at, net, overtime, pause
		 FROM time_entries
		 WHERE tenant_id = ? AND worker_id = ? AND entry_date BETWEEN ? AND ?
		 ORDER BY entry_date, started_at`,
		tenantID, workerID, start.Format(time.DateOnly), end.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("listing time entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.TimeEntry
	for rows.Next() {
		var e domain.TimeEntry
		var entryDate string
		var startedAt, endedAt sql.NullString
		if err := rows.Scan(&entryDate, &e.Status, &startedAt, &endedAt, &e.Net, &e.Overtime, &e.Break); err != nil {
			return nil, fmt.Errorf("scanning time entry: %w", err)
		}

		e.Date, err = time.Parse(time.DateOnly, entryDate)
		if err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", entryDate, err)
		}
		if e.StartedAt, err = parseOptionalTime(startedAt); err != nil {
			return nil, err
		}
		if e.EndedAt, err = parseOptionalTime(endedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// InsertWorker adds a worker to a tenant.
func (r *Repository) InsertWorker(ctx context.Context, tenantID string, w domain.Worker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workers (tenant_id, id, name, id_number, vacation_balance) VALUES (?, ?, ?, ?, ?)`,
		tenantID, w.ID, w.Name, w.IDNumber, w.VacationBalance,
	)
	if err != nil {
		return fmt.Errorf("inserting worker: %w", err)
	}
	return nil
}

// InsertTimeEntry records one tracked day of a worker.
func (r *Repository) InsertTimeEntry(ctx context.Context, tenantID, workerID string, e domain.TimeEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries (tenant_id, worker_id, entry_date, status, started_at, ended_at, net, overtime, pause)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenantID, workerID, e.Date.Format(time.DateOnly), e.Status,
		formatOptionalTime(e.StartedAt), formatOptionalTime(e.EndedAt),
		e.Net, e.Overtime, e.Break,
	)
	if err != nil {
		return fmt.Errorf("inserting time entry: %w", err)
	}
	return nil
}

func parseOptionalTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", v.String, err)
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
