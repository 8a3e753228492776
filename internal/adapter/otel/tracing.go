package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

const tracerName = "github.com/neomorfeo/reportcycle/internal/adapter/otel"

// Compile-time checks: every decorator implements the port it wraps.
var (
	_ domain.TimesheetSource = (*TracingSource)(nil)
	_ domain.ObjectStore     = (*TracingStore)(nil)
	_ domain.Rasterizer      = (*TracingRasterizer)(nil)
	_ domain.Mailer          = (*TracingMailer)(nil)
)

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TracingSource wraps a domain.TimesheetSource with OpenTelemetry tracing.
type TracingSource struct {
	next   domain.TimesheetSource
	tracer trace.Tracer
}

// NewTracingSource creates a tracing decorator around the given source.
func NewTracingSource(next domain.TimesheetSource) *TracingSource {
	return &TracingSource{next: next, tracer: otel.Tracer(tracerName)}
}

func (s *TracingSource) ListWorkers(ctx context.Context, tenantID string) ([]domain.Worker, error) {
	ctx, span := s.tracer.Start(ctx, "TimesheetSource.ListWorkers",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)

	workers, err := s.next.ListWorkers(ctx, tenantID)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(workers)))
	}
	endSpan(span, err)
	return workers, err
}

func (s *TracingSource) ListTimeEntries(ctx context.Context, tenantID, workerID string, start, end time.Time) ([]domain.TimeEntry, error) {
	ctx, span := s.tracer.Start(ctx, "TimesheetSource.ListTimeEntries",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("worker.id", workerID),
			attribute.String("window.start", start.Format(time.DateOnly)),
			attribute.String("window.end", end.Format(time.DateOnly)),
		),
	)

	entries, err := s.next.ListTimeEntries(ctx, tenantID, workerID, start, end)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(entries)))
	}
	endSpan(span, err)
	return entries, err
}

// TracingStore wraps a domain.ObjectStore with OpenTelemetry tracing.
type TracingStore struct {
	next   domain.ObjectStore
	tracer trace.Tracer
}

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.ObjectStore) *TracingStore {
	return &TracingStore{next: next, tracer: otel.Tracer(tracerName)}
}

func (s *TracingStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "ObjectStore.List",
		trace.WithAttributes(attribute.String("object.prefix", prefix)),
	)

	names, err := s.next.List(ctx, prefix)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(names)))
	}
	endSpan(span, err)
	return names, err
}

func (s *TracingStore) Upload(ctx context.Context, object domain.Object, upsert bool) error {
	ctx, span := s.tracer.Start(ctx, "ObjectStore.Upload",
		trace.WithAttributes(
			attribute.String("object.name", object.Name),
			attribute.Int("object.size", len(object.Content)),
			attribute.Bool("object.upsert", upsert),
		),
	)

	err := s.next.Upload(ctx, object, upsert)
	endSpan(span, err)
	return err
}

// TracingRasterizer wraps a domain.Rasterizer with OpenTelemetry tracing.
type TracingRasterizer struct {
	next   domain.Rasterizer
	tracer trace.Tracer
}

// NewTracingRasterizer creates a tracing decorator around the given rasterizer.
func NewTracingRasterizer(next domain.Rasterizer) *TracingRasterizer {
	return &TracingRasterizer{next: next, tracer: otel.Tracer(tracerName)}
}

func (r *TracingRasterizer) Rasterize(ctx context.Context, markup []byte) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "Rasterizer.Rasterize",
		trace.WithAttributes(attribute.Int("markup.size", len(markup))),
	)

	pdf, err := r.next.Rasterize(ctx, markup)
	if err == nil {
		span.SetAttributes(attribute.Int("pdf.size", len(pdf)))
	}
	endSpan(span, err)
	return pdf, err
}

// TracingMailer wraps a domain.Mailer with OpenTelemetry tracing.
type TracingMailer struct {
	next   domain.Mailer
	tracer trace.Tracer
}

// NewTracingMailer creates a tracing decorator around the given mailer.
func NewTracingMailer(next domain.Mailer) *TracingMailer {
	return &TracingMailer{next: next, tracer: otel.Tracer(tracerName)}
}

func (m *TracingMailer) Send(ctx context.Context, msg domain.Message) error {
	ctx, span := m.tracer.Start(ctx, "Mailer.Send",
		trace.WithAttributes(attribute.String("mail.subject", msg.Subject)),
	)

	err := m.next.Send(ctx, msg)
	endSpan(span, err)
	return err
}
