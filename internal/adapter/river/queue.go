package river

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Compile-time check: Queue implements domain.ReportQueue.
var _ domain.ReportQueue = (*Queue)(nil)

// ReportJobArgs carries an on-demand report request. River serializes it as
// JSON into its job table; the dates keep their offset so the worker sees the
// same calendar days the caller asked for.
type ReportJobArgs struct {
	TenantSlug string    `json:"tenant_slug"`
	WorkerIDs  []string  `json:"worker_ids"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ReportJobArgs) Kind() string { return "report.on_demand" }

// InsertOpts disables retries: a failed report is reported, not repeated.
func (ReportJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

func (a ReportJobArgs) request() domain.OnDemandRequest {
	return domain.OnDemandRequest{
		TenantSlug: a.TenantSlug,
		WorkerIDs:  a.WorkerIDs,
		Start:      a.Start,
		End:        a.End,
	}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Queue implements domain.ReportQueue by enqueuing River jobs.
type Queue struct {
	client *Client
}

// NewQueue creates a report queue backed by the given River client.
func NewQueue(client *Client) *Queue {
	return &Queue{client: client}
}

// Enqueue inserts an on-demand report job and returns its id.
func (q *Queue) Enqueue(ctx context.Context, req domain.OnDemandRequest) (string, error) {
	res, err := q.client.Insert(ctx, ReportJobArgs{
		TenantSlug: req.TenantSlug,
		WorkerIDs:  req.WorkerIDs,
		Start:      req.Start,
		End:        req.End,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("enqueuing report job: %w", err)
	}
	return strconv.FormatInt(res.Job.ID, 10), nil
}
