package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/neomorfeo/reportcycle/internal/adapter/chromium"
	"github.com/neomorfeo/reportcycle/internal/adapter/filestore"
	"github.com/neomorfeo/reportcycle/internal/adapter/fsm"
	"github.com/neomorfeo/reportcycle/internal/adapter/htmlreport"
	"github.com/neomorfeo/reportcycle/internal/adapter/otel"
	"github.com/neomorfeo/reportcycle/internal/adapter/s3"
	"github.com/neomorfeo/reportcycle/internal/adapter/smtp"
	"github.com/neomorfeo/reportcycle/internal/adapter/sqlite"
	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/config"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

// stack holds the wired adapters of one process.
type stack struct {
	cfg      *config.Config
	deps     app.Deps
	settings app.Settings
	repo     *sqlite.Repository
	metrics  *otel.RunMetrics
	logger   *slog.Logger

	closers []func(context.Context) error
}

// wireOptions select the optional parts of the stack.
type wireOptions struct {
	// pipeline wires the renderer, rasterizer and object store.
	pipeline bool
	fs       afero.Fs
}

// wire builds every adapter named by cfg. On error everything already opened
// is closed again.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts wireOptions) (_ *stack, err error) {
	if opts.fs == nil {
		opts.fs = afero.NewOsFs()
	}

	s := &stack{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = s.close(context.WithoutCancel(ctx))
		}
	}()

	providers, err := otel.Setup(ctx, otel.Config{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.OTel.Environment,
		Exporter:       cfg.OTel.Exporter,
		Insecure:       cfg.OTel.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	s.closers = append(s.closers, providers.Shutdown)

	s.metrics, err = otel.NewRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	db, err := otel.OpenDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.repo, err = sqlite.NewFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { return s.repo.Close() })

	s.deps = app.Deps{
		Registry:  s.repo,
		Source:    otel.NewTracingSource(s.repo),
		State:     s.repo,
		Validator: fsm.New(),
		Logger:    logger,
	}
	if cfg.Revision.Strategy == config.RevisionCounter {
		s.deps.Counter = s.repo
	}
	s.settings = app.Settings{
		Location:      cfg.Location(),
		Locale:        domain.Locale(cfg.Locale),
		RequireActive: cfg.RequireActive,
		NotifyEnabled: cfg.Notify.Enabled,
		MailFrom:      cfg.SMTP.From,
		SenderName:    cfg.SenderName,
	}

	if cfg.SMTP.Host != "" {
		mailer, err := smtp.New(smtp.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			TLS:                cfg.SMTP.TLS,
			From:               cfg.SMTP.From,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
		s.deps.Mailer = otel.NewTracingMailer(mailer)
	}

	if !opts.pipeline {
		return s, nil
	}

	assets, err := config.LoadAssets(opts.fs, cfg.Assets, htmlreport.DefaultTemplate)
	if err != nil {
		return nil, err
	}
	renderer, err := htmlreport.New(assets.Template, assets.Logo, domain.Locale(cfg.Locale))
	if err != nil {
		return nil, err
	}
	s.deps.Renderer = renderer

	store, err := newObjectStore(ctx, cfg.Storage, opts.fs)
	if err != nil {
		return nil, err
	}
	s.deps.Store = otel.NewTracingStore(store)

	rasterizer, err := chromium.New(chromium.Options{
		ExecPath:  cfg.Chromium.ExecPath,
		NoSandbox: cfg.Chromium.NoSandbox,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { rasterizer.Close(); return nil })
	s.deps.Rasterizer = otel.NewTracingRasterizer(rasterizer)

	return s, nil
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig, fs afero.Fs) (domain.ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filestore.New(fs, cfg.Dir, cfg.ListLimit)
	case config.BackendS3:
		return s3.NewFromConfig(ctx, s3.Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			ListLimit: cfg.ListLimit,
		})
	default:
		return nil, &domain.ConfigurationError{Field: "storage.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// service builds the report service over the wired adapters.
func (s *stack) service() *app.ReportService {
	return app.NewReportService(s.deps, s.settings)
}

// close releases resources in reverse order of acquisition.
func (s *stack) close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
