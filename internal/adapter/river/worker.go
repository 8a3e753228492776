package river

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Runner executes an on-demand report run.
type Runner interface {
	RunOnDemand(ctx context.Context, req domain.OnDemandRequest) (domain.RunSummary, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req domain.OnDemandRequest) (domain.RunSummary, error)

func (f RunnerFunc) RunOnDemand(ctx context.Context, req domain.OnDemandRequest) (domain.RunSummary, error) {
	return f(ctx, req)
}

// ReportWorker processes on-demand report jobs from the River queue.
type ReportWorker struct {
	river.WorkerDefaults[ReportJobArgs]

	runner  Runner
	logger  *slog.Logger
	observe func(context.Context, domain.RunSummary)
}

// NewReportWorker creates a worker that hands jobs to runner. observe, when
// set, receives every finished run summary.
func NewReportWorker(runner Runner, logger *slog.Logger, observe func(context.Context, domain.RunSummary)) *ReportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWorker{runner: runner, logger: logger, observe: observe}
}

// Timeout disables River's default job timeout; cancellation comes from the
// client's context only.
func (w *ReportWorker) Timeout(*river.Job[ReportJobArgs]) time.Duration {
	return -1
}

// Work runs a single report job.
func (w *ReportWorker) Work(ctx context.Context, job *river.Job[ReportJobArgs]) error {
	w.logger.InfoContext(ctx, "processing report job",
		"tenant", job.Args.TenantSlug,
		"workers", len(job.Args.WorkerIDs),
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	summary, err := w.runner.RunOnDemand(ctx, job.Args.request())
	if w.observe != nil {
		w.observe(ctx, summary)
	}
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) || errors.Is(err, domain.ErrNoMatchingWorkers) {
			return river.JobCancel(err)
		}
		return err
	}

	uploaded, skipped := summary.Counts()
	w.logger.InfoContext(ctx, "report job finished",
		"job_id", job.ID,
		"run_id", summary.RunID,
		"uploaded", uploaded,
		"skipped", skipped,
	)
	return nil
}
