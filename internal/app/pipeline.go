package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// ScheduledRequest selects the day and the tenant chunk of a bulk run. A zero
// Today means the current day; ChunkSize <= 0 means a single unbounded chunk.
type ScheduledRequest struct {
	Today      time.Time
	ChunkSize  int
	ChunkIndex int
}

// artifactPlan describes how one worker statement is named and stored.
type artifactPlan struct {
	tenant domain.Tenant
	window domain.Window
	// period selects the month and year printed on the statement and in its name.
	period  time.Time
	created time.Time

	revisioned bool
	upsert     bool
	skipEmpty  bool
}

// RunScheduled executes the bulk cycle for the due tenants of one chunk.
// Per-tenant and per-worker failures are recorded in the summary; only a
// registry failure or cancellation aborts the run.
func (s *ReportService) RunScheduled(ctx context.Context, req ScheduledRequest) (domain.RunSummary, error) {
	today := s.localize(req.Today)
	summary := domain.RunSummary{
		RunID:      uuid.NewString(),
		Mode:       domain.ModeScheduled,
		Today:      today,
		ChunkSize:  req.ChunkSize,
		ChunkIndex: req.ChunkIndex,
	}

	if req.ChunkIndex < 0 {
		return summary, &domain.ConfigurationError{Field: "chunk.index", Reason: "must not be negative"}
	}

	tenants, err := s.registry.List(ctx, domain.ListFilter{})
	if err != nil {
		return summary, fmt.Errorf("listing tenants: %w", err)
	}

	due := domain.SelectDue(tenants, today, domain.SelectOptions{RequireActive: s.settings.RequireActive})
	chunk := domain.Partition(due, req.ChunkSize, req.ChunkIndex)
	summary.DueTotal = len(due)

	logger := s.logger.With("run_id", summary.RunID, "mode", summary.Mode)
	logger.InfoContext(ctx, "scheduled run started",
		"date", today.Format(time.DateOnly),
		"due", len(due),
		"chunk_size", req.ChunkSize,
		"chunk_index", req.ChunkIndex,
		"chunk_tenants", len(chunk),
	)

	for _, tenant := range chunk {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, workers := s.runTenant(ctx, tenant, today)
		summary.Tenants = append(summary.Tenants, outcome)
		summary.Workers = append(summary.Workers, workers...)
	}

	uploaded, skipped := summary.Counts()
	logger.InfoContext(ctx, "scheduled run finished", "uploaded", uploaded, "skipped", skipped)

	return summary, nil
}

func (s *ReportService) runTenant(ctx context.Context, tenant domain.Tenant, today time.Time) (domain.TenantOutcome, []domain.WorkerOutcome) {
	window := domain.ResolveWindow(today, tenant.DispatchDay, tenant.LastDispatchedDay)
	outcome := domain.TenantOutcome{Slug: tenant.Slug, Window: window}
	logger := s.logger.With("tenant", tenant.Slug)

	if window.Empty() {
		outcome.Err = domain.ErrEmptyWindow
		logger.WarnContext(ctx, "tenant skipped",
			"start", window.Start.Format(time.DateOnly),
			"end", window.End.Format(time.DateOnly),
			"error", outcome.Err,
		)
		return outcome, nil
	}

	workers, err := s.source.ListWorkers(ctx, tenant.ID)
	if err != nil {
		// Dispatch state is left untouched so the next cycle covers this period again.
		outcome.Err = domain.NewStepError(domain.KindDataFetch, err)
		logger.ErrorContext(ctx, "tenant skipped", "error", outcome.Err)
		return outcome, nil
	}

	plan := artifactPlan{
		tenant:  tenant,
		window:  window,
		period:  today,
		created: today,
		upsert:  true,
	}

	results := make([]domain.WorkerOutcome, 0, len(workers))
	for _, worker := range workers {
		if err := ctx.Err(); err != nil {
			outcome.Err = err
			return outcome, results
		}
		results = append(results, s.processWorker(ctx, plan, worker))
	}

	if err := s.state.SetLastDispatched(ctx, tenant.ID, today.Day()); err != nil {
		outcome.StateErr = domain.NewStepError(domain.KindStateUpdate, err)
		logger.ErrorContext(ctx, "dispatch state not persisted", "error", outcome.StateErr)
	} else {
		outcome.StateDay = today.Day()
	}

	if s.settings.NotifyEnabled {
		s.notifyUploaded(ctx, tenant, plan.period, results)
	}

	return outcome, results
}

// RunOnDemand produces revisioned statements for the requested workers of
// one tenant over an explicit date range. Dispatch state is not touched.
func (s *ReportService) RunOnDemand(ctx context.Context, req domain.OnDemandRequest) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID: uuid.NewString(),
		Mode:  domain.ModeOnDemand,
		Today: s.Today(),
	}

	if err := validateOnDemand(req); err != nil {
		return summary, err
	}

	logger := s.logger.With("run_id", summary.RunID, "mode", summary.Mode, "tenant", req.TenantSlug)

	tenant, err := s.registry.GetBySlug(ctx, req.TenantSlug)
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		logger.WarnContext(ctx, "tenant not in registry, using slug as company name")
		tenant = domain.Tenant{ID: req.TenantSlug, Slug: req.TenantSlug, Name: req.TenantSlug}
	case err != nil:
		return summary, fmt.Errorf("looking up tenant: %w", err)
	}

	workers, err := s.source.ListWorkers(ctx, tenant.ID)
	if err != nil {
		return summary, domain.NewStepError(domain.KindDataFetch, err)
	}

	selected := make([]domain.Worker, 0, len(req.WorkerIDs))
	for _, w := range workers {
		if slices.Contains(req.WorkerIDs, w.ID) {
			selected = append(selected, w)
		}
	}
	if len(selected) == 0 {
		return summary, fmt.Errorf("tenant %q: %w", tenant.Slug, domain.ErrNoMatchingWorkers)
	}

	window := domain.Window{
		Start: domain.StartOfDay(req.Start.In(s.settings.Location)),
		End:   domain.StartOfDay(req.End.In(s.settings.Location)),
	}
	summary.DueTotal = 1
	summary.Tenants = []domain.TenantOutcome{{Slug: tenant.Slug, Window: window}}

	logger.InfoContext(ctx, "on-demand run started",
		"start", window.Start.Format(time.DateOnly),
		"end", window.End.Format(time.DateOnly),
		"workers", len(selected),
	)

	plan := artifactPlan{
		tenant:     tenant,
		window:     window,
		period:     window.Start,
		created:    summary.Today,
		revisioned: true,
		skipEmpty:  true,
	}

	for _, worker := range selected {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Workers = append(summary.Workers, s.processWorker(ctx, plan, worker))
	}

	uploaded, skipped := summary.Counts()
	logger.InfoContext(ctx, "on-demand run finished", "uploaded", uploaded, "skipped", skipped)

	return summary, nil
}

// processWorker walks one artifact through fetch, render, rasterize and
// upload. Any failure skips the artifact and is recorded on the outcome.
func (s *ReportService) processWorker(ctx context.Context, plan artifactPlan, worker domain.Worker) domain.WorkerOutcome {
	out := domain.WorkerOutcome{
		TenantSlug: plan.tenant.Slug,
		WorkerID:   worker.ID,
		WorkerName: worker.Name,
		Stage:      domain.StagePending,
		Reached:    domain.StagePending,
	}
	logger := s.logger.With("tenant", plan.tenant.Slug, "worker_id", worker.ID)

	advance := func(event domain.StageEvent) error {
		next, err := s.validator.Apply(ctx, out.Stage, event)
		if err != nil {
			return err
		}
		out.Stage = next
		out.Reached = next
		return nil
	}
	skip := func(err error) domain.WorkerOutcome {
		if next, applyErr := s.validator.Apply(ctx, out.Stage, domain.EventSkip); applyErr == nil {
			out.Stage = next
		} else {
			out.Stage = domain.StageSkipped
		}
		out.Err = err
		logger.WarnContext(ctx, "statement skipped", "stage", out.Reached, "error", err)
		return out
	}

	entries, err := s.source.ListTimeEntries(ctx, plan.tenant.ID, worker.ID, plan.window.Start, plan.window.End)
	if err != nil {
		return skip(domain.NewStepError(domain.KindDataFetch, err))
	}
	if len(entries) == 0 && plan.skipEmpty {
		return skip(domain.ErrNoEntries)
	}
	statement, err := domain.NewStatement(entries, s.settings.Location, s.settings.Locale)
	if err != nil {
		return skip(domain.NewStepError(domain.KindDataFetch, err))
	}
	if err := advance(domain.EventFetch); err != nil {
		return skip(err)
	}

	report := domain.NewReportContext(plan.tenant, worker, statement, plan.period, plan.created, s.settings.Locale)
	markup, err := s.renderer.Render(ctx, report)
	if err != nil {
		return skip(domain.NewStepError(domain.KindRender, err))
	}
	if err := advance(domain.EventRender); err != nil {
		return skip(err)
	}

	pdf, err := s.rasterizer.Rasterize(ctx, markup)
	if err != nil {
		return skip(domain.NewStepError(domain.KindRasterize, err))
	}
	if err := advance(domain.EventRasterize); err != nil {
		return skip(err)
	}

	name, revision, err := s.artifactName(ctx, plan, worker)
	if err != nil {
		return skip(domain.NewStepError(domain.KindUpload, err))
	}
	out.Artifact = name
	out.Revision = revision

	object := domain.Object{Name: name, Content: pdf, ContentType: domain.ContentTypePDF}
	if err := s.store.Upload(ctx, object, plan.upsert); err != nil {
		return skip(domain.NewStepError(domain.KindUpload, err))
	}
	if err := advance(domain.EventUpload); err != nil {
		return skip(err)
	}

	out.Size = len(pdf)
	logger.InfoContext(ctx, "statement uploaded",
		"artifact", name,
		"size", humanize.Bytes(uint64(len(pdf))),
		"entries", len(entries),
	)
	return out
}

// artifactName returns the storage name for worker. Revisioned names are
// derived from a fresh listing right before upload, raised to the counter's
// allocation when one is configured. The listing covers the whole namespace
// because revisions match regardless of case.
func (s *ReportService) artifactName(ctx context.Context, plan artifactPlan, worker domain.Worker) (string, int, error) {
	label := s.settings.Locale.PeriodLabel(plan.period)
	if !plan.revisioned {
		return domain.BulkName(plan.tenant.Slug, worker.Name, label), 0, nil
	}

	prefix := domain.RevisionPrefix(plan.tenant.Slug, worker.Name, label)
	names, err := s.store.List(ctx, "")
	if err != nil {
		return "", 0, fmt.Errorf("listing artifacts: %w", err)
	}
	revision := domain.NextRevision(names, prefix)

	if s.counter != nil {
		revision, err = s.counter.NextRevision(ctx, prefix, revision)
		if err != nil {
			return "", 0, fmt.Errorf("allocating revision: %w", err)
		}
	}

	return domain.RevisionedName(prefix, revision), revision, nil
}
