package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Deps are the ports a ReportService drives. Counter, Mailer and Queue are
// optional.
type Deps struct {
	Registry   domain.TenantRegistry
	Source     domain.TimesheetSource
	State      domain.DispatchStateStore
	Counter    domain.RevisionCounter
	Renderer   domain.Renderer
	Rasterizer domain.Rasterizer
	Store      domain.ObjectStore
	Mailer     domain.Mailer
	Queue      domain.ReportQueue
	Validator  domain.StageValidator
	Clock      quartz.Clock
	Logger     *slog.Logger
}

// Settings tune a ReportService.
type Settings struct {
	Location      *time.Location
	Locale        domain.Locale
	RequireActive bool
	NotifyEnabled bool
	MailFrom      string
	SenderName    string
}

// ReportService orchestrates report cycles and tenant administration.
type ReportService struct {
	registry   domain.TenantRegistry
	source     domain.TimesheetSource
	state      domain.DispatchStateStore
	counter    domain.RevisionCounter
	renderer   domain.Renderer
	rasterizer domain.Rasterizer
	store      domain.ObjectStore
	mailer     domain.Mailer
	queue      domain.ReportQueue
	validator  domain.StageValidator
	clock      quartz.Clock
	logger     *slog.Logger
	settings   Settings
}

// NewReportService creates a service with the given adapters.
func NewReportService(deps Deps, settings Settings) *ReportService {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if !settings.Locale.Valid() {
		settings.Locale = domain.LocaleGerman
	}

	return &ReportService{
		registry:   deps.Registry,
		source:     deps.Source,
		state:      deps.State,
		counter:    deps.Counter,
		renderer:   deps.Renderer,
		rasterizer: deps.Rasterizer,
		store:      deps.Store,
		mailer:     deps.Mailer,
		queue:      deps.Queue,
		validator:  deps.Validator,
		clock:      deps.Clock,
		logger:     deps.Logger,
		settings:   settings,
	}
}

// Today returns the current time in the configured location.
func (s *ReportService) Today() time.Time {
	return s.clock.Now().In(s.settings.Location)
}

// ParseDate reads a YYYY-MM-DD calendar date in the configured location.
func (s *ReportService) ParseDate(field, text string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, text, s.settings.Location)
	if err != nil {
		return time.Time{}, &domain.ConfigurationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", text),
		}
	}
	return t, nil
}

func (s *ReportService) localize(t time.Time) time.Time {
	if t.IsZero() {
		return s.Today()
	}
	return t.In(s.settings.Location)
}

// CreateTenant registers a new active tenant.
func (s *ReportService) CreateTenant(ctx context.Context, name, slug, contactEmail string, dispatchDay int) (domain.Tenant, error) {
	if !domain.ValidDay(dispatchDay) {
		return domain.Tenant{}, &domain.ConfigurationError{
			Field:  "dispatch_day",
			Reason: fmt.Sprintf("%d is not a day of month", dispatchDay),
		}
	}

	// Check slug uniqueness before creating.
	if _, err := s.registry.GetBySlug(ctx, slug); err == nil {
		return domain.Tenant{}, &domain.SlugConflictError{Slug: slug}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return domain.Tenant{}, fmt.Errorf("looking up slug: %w", err)
	}

	tenant := domain.NewTenant(uuid.NewString(), name, slug, contactEmail, dispatchDay)

	if err := s.registry.Create(ctx, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("creating tenant: %w", err)
	}

	return tenant, nil
}

// GetTenant returns a tenant by ID.
func (s *ReportService) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	return s.registry.GetByID(ctx, id)
}

// ListTenants returns tenants matching the given filter.
func (s *ReportService) ListTenants(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	return s.registry.List(ctx, filter)
}

// DueTenants returns the tenants whose cycle runs on date. A zero date means today.
func (s *ReportService) DueTenants(ctx context.Context, date time.Time) ([]domain.Tenant, error) {
	tenants, err := s.registry.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	return domain.SelectDue(tenants, s.localize(date), domain.SelectOptions{RequireActive: s.settings.RequireActive}), nil
}

// SetTenantStatus changes the registry status of a tenant.
func (s *ReportService) SetTenantStatus(ctx context.Context, id string, status domain.Status) (domain.Tenant, error) {
	if !status.Valid() {
		return domain.Tenant{}, &domain.ConfigurationError{
			Field:  "status",
			Reason: fmt.Sprintf("unknown status %q", status),
		}
	}

	if err := s.registry.UpdateStatus(ctx, id, status); err != nil {
		return domain.Tenant{}, err
	}

	return s.registry.GetByID(ctx, id)
}

// UpdateDispatchState records day as the last dispatched day of a tenant.
func (s *ReportService) UpdateDispatchState(ctx context.Context, tenantID string, day int) (domain.Tenant, error) {
	if !domain.ValidDay(day) {
		return domain.Tenant{}, &domain.ConfigurationError{
			Field:  "last_dispatched_day",
			Reason: fmt.Sprintf("%d is not a day of month", day),
		}
	}

	if _, err := s.registry.GetByID(ctx, tenantID); err != nil {
		return domain.Tenant{}, err
	}

	if err := s.state.SetLastDispatched(ctx, tenantID, day); err != nil {
		return domain.Tenant{}, fmt.Errorf("updating dispatch state: %w", err)
	}

	return s.registry.GetByID(ctx, tenantID)
}

// RequestReport validates req and hands it to the report queue.
func (s *ReportService) RequestReport(ctx context.Context, req domain.OnDemandRequest) (string, error) {
	if s.queue == nil {
		return "", &domain.ConfigurationError{Field: "queue", Reason: "no report queue configured"}
	}
	if err := validateOnDemand(req); err != nil {
		return "", err
	}

	id, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		return "", fmt.Errorf("enqueueing report: %w", err)
	}

	s.logger.InfoContext(ctx, "report requested",
		"tenant", req.TenantSlug,
		"workers", len(req.WorkerIDs),
		"job_id", id,
	)
	return id, nil
}

func validateOnDemand(req domain.OnDemandRequest) error {
	switch {
	case req.TenantSlug == "":
		return &domain.ConfigurationError{Field: "tenant", Reason: "required"}
	case len(req.WorkerIDs) == 0:
		return &domain.ConfigurationError{Field: "worker_ids", Reason: "at least one worker id is required"}
	case req.Start.IsZero() || req.End.IsZero():
		return &domain.ConfigurationError{Field: "period", Reason: "start and end dates are required"}
	case req.End.Before(req.Start):
		return &domain.ConfigurationError{Field: "period", Reason: "end date is before start date"}
	}
	return nil
}
