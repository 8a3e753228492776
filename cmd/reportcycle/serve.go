package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	handler "github.com/neomorfeo/reportcycle/internal/adapter/http"
	riveradapter "github.com/neomorfeo/reportcycle/internal/adapter/river"
	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/config"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tenant API, the report queue and the cron schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := config.Flags{"serve.port": cmd.Flags().Lookup("port")}
			return c.withStack(cmd.Context(), flags, true, serve)
		},
	}
	cmd.Flags().Int("port", config.DefaultPort, "HTTP listen port (env PORT)")
	return cmd
}

// serve runs until ctx is cancelled, then drains the HTTP server, the cron
// scheduler and the River client in that order.
func serve(ctx context.Context, s *stack) error {
	logger := s.logger

	// The worker needs the service and the service needs the queue, which
	// needs the worker's client: svc is assigned before the client starts.
	var svc *app.ReportService
	worker := riveradapter.NewReportWorker(
		riveradapter.RunnerFunc(func(ctx context.Context, req domain.OnDemandRequest) (domain.RunSummary, error) {
			return svc.RunOnDemand(ctx, req)
		}),
		logger,
		s.metrics.Record,
	)
	client, err := riveradapter.Setup(ctx, s.repo.DB(), worker, logger)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	s.deps.Queue = riveradapter.NewQueue(client)
	svc = s.service()

	scheduler, err := newScheduler(ctx, svc, s.cfg, s.metrics.Record, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(s.cfg.Serve.Port)),
		Handler:           newRouter(svc, s.cfg.OTel.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	scheduler.Start()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("reportcycle listening", "addr", srv.Addr, "docs", "http://localhost:"+strconv.Itoa(s.cfg.Serve.Port)+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		errs = append(errs, errors.New("cron jobs still running at shutdown"))
	}
	if err := client.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("river shutdown: %w", err))
	}

	logger.Info("stopped")
	return errors.Join(errs...)
}

// newRouter mounts the tenant and report API.
func newRouter(svc *app.ReportService, serviceName string) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("reportcycle", version))
	handler.Register(api, svc)
	return router
}

// newScheduler registers the bulk cycle and reminder schedules. An empty
// schedule is disabled. Overlapping runs of the same job are skipped.
func newScheduler(ctx context.Context, svc *app.ReportService, cfg *config.Config, observe func(context.Context, domain.RunSummary), logger *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: logger.With("component", "cron")}
	scheduler := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if cfg.Serve.CycleCron != "" {
		_, err := scheduler.AddFunc(cfg.Serve.CycleCron, func() {
			summary, err := svc.RunScheduled(ctx, app.ScheduledRequest{
				ChunkSize:  cfg.Chunk.Size,
				ChunkIndex: cfg.Chunk.Index,
			})
			observe(ctx, summary)
			uploaded, skipped := summary.Counts()
			if err != nil {
				logger.ErrorContext(ctx, "scheduled cycle failed", "run_id", summary.RunID, "error", err)
				return
			}
			logger.InfoContext(ctx, "scheduled cycle finished", "run_id", summary.RunID, "uploaded", uploaded, "skipped", skipped)
		})
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "serve.cycle_cron", Reason: err.Error()}
		}
	}

	switch {
	case cfg.Serve.ReminderCron == "":
	case cfg.SMTP.Host == "":
		logger.Warn("reminder schedule ignored, no smtp.host configured")
	default:
		_, err := scheduler.AddFunc(cfg.Serve.ReminderCron, func() {
			result, err := svc.SendReminders(ctx, time.Time{})
			if err != nil {
				logger.ErrorContext(ctx, "reminders failed", "error", err)
				return
			}
			logger.InfoContext(ctx, "reminders sent", "due", result.Due, "sent", result.Sent, "failed", result.Failed)
		})
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "serve.reminder_cron", Reason: err.Error()}
		}
	}

	return scheduler, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
