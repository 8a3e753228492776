package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// SetLastDispatched upserts the last dispatched day of a tenant. Writing the
// stored value again leaves the row untouched, updated_at included.
func (r *Repository) SetLastDispatched(ctx context.Context, tenantID string, day int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dispatch_state (tenant_id, last_dispatched_day, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		     last_dispatched_day = excluded.last_dispatched_day,
		     updated_at = excluded.updated_at
		 WHERE dispatch_state.last_dispatched_day IS NOT excluded.last_dispatched_day`,
		tenantID, day, r.now(),
	)
	if err != nil {
		return fmt.Errorf("upserting dispatch state: %w", err)
	}
	return nil
}

// DispatchState returns the stored last dispatched day of a tenant and when
// it last changed.
func (r *Repository) DispatchState(ctx context.Context, tenantID string) (int, time.Time, error) {
	var day int
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT last_dispatched_day, updated_at FROM dispatch_state WHERE tenant_id = ?`, tenantID,
	).Scan(&day, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, domain.ErrTenantNotFound
		}
		return 0, time.Time{}, fmt.Errorf("reading dispatch state: %w", err)
	}

	t, _ := time.Parse(timeFormat, updatedAt)
	return day, t, nil
}

// NextRevision atomically allocates the next revision for prefix. The result
// is one above the last allocation and never below floor. Prefixes differing
// only in case share one counter.
func (r *Repository) NextRevision(ctx context.Context, prefix string, floor int) (int, error) {
	floor = max(floor, 1)
	key := strings.ToLower(prefix)

	var revision int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO artifact_revisions (prefix, revision, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (prefix) DO UPDATE SET
		     revision = MAX(artifact_revisions.revision + 1, excluded.revision),
		     updated_at = excluded.updated_at
		 RETURNING revision`,
		key, floor, r.now(),
	).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("allocating revision: %w", err)
	}
	return revision, nil
}
