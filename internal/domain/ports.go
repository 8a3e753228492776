package domain

import (
	"context"
	"time"
)

// TenantRegistry exposes the tenant registry. List returns tenants in a
// stable order (by slug) so co-running chunks partition the same list.
type TenantRegistry interface {
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	Create(ctx context.Context, tenant Tenant) error
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// TimesheetSource reads tenant-scoped worker and time data.
type TimesheetSource interface {
	ListWorkers(ctx context.Context, tenantID string) ([]Worker, error)

	// ListTimeEntries returns entries with start <= date <= end, ascending by date.
	ListTimeEntries(ctx context.Context, tenantID, workerID string, start, end time.Time) ([]TimeEntry, error)
}

// DispatchStateStore persists the day of month of the last dispatched cycle.
// SetLastDispatched is an idempotent upsert.
type DispatchStateStore interface {
	SetLastDispatched(ctx context.Context, tenantID string, day int) error
}

// RevisionCounter allocates revisions atomically per prefix. The result is
// never below floor and never repeats for a prefix.
type RevisionCounter interface {
	NextRevision(ctx context.Context, prefix string, floor int) (int, error)
}

// Renderer turns a report context into document markup.
type Renderer interface {
	Render(ctx context.Context, report ReportContext) ([]byte, error)
}

// Rasterizer converts settled markup into an A4 PDF with background graphics.
type Rasterizer interface {
	Rasterize(ctx context.Context, markup []byte) ([]byte, error)
}

// Object is a named blob handed to an ObjectStore.
type Object struct {
	Name        string
	Content     []byte
	ContentType string
}

// ObjectStore is a name-addressed blob store. List returns at most one
// bounded page of names. Upload with upsert=false fails with ErrObjectExists
// when the name is taken.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Upload(ctx context.Context, object Object, upsert bool) error
}

// Message is a plain-text email.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Mailer delivers email. Callers treat delivery as best effort.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ReportQueue hands on-demand report requests to an asynchronous executor.
type ReportQueue interface {
	Enqueue(ctx context.Context, req OnDemandRequest) (string, error)
}

// StageValidator applies artifact stage events.
type StageValidator interface {
	Apply(ctx context.Context, current Stage, event StageEvent) (Stage, error)
}

// OnDemandRequest asks for revisioned statements of selected workers over an
// explicit date range.
type OnDemandRequest struct {
	TenantSlug string
	WorkerIDs  []string
	Start      time.Time
	End        time.Time
}
