package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// RunMetrics turns run summaries into counters.
type RunMetrics struct {
	artifacts metric.Int64Counter
	tenants   metric.Int64Counter
}

// NewRunMetrics registers the run counters on the global meter provider.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter(tracerName)

	artifacts, err := meter.Int64Counter("reportcycle.artifacts",
		metric.WithDescription("Worker statements by final stage"),
		metric.WithUnit("{artifact}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating artifact counter: %w", err)
	}

	tenants, err := meter.Int64Counter("reportcycle.tenants",
		metric.WithDescription("Processed tenants by result"),
		metric.WithUnit("{tenant}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tenant counter: %w", err)
	}

	return &RunMetrics{artifacts: artifacts, tenants: tenants}, nil
}

// Record adds one run summary to the counters.
func (m *RunMetrics) Record(ctx context.Context, summary domain.RunSummary) {
	mode := attribute.String("run.mode", string(summary.Mode))

	for _, w := range summary.Workers {
		attrs := []attribute.KeyValue{mode, attribute.String("artifact.stage", string(w.Stage))}
		if kind := domain.KindOf(w.Err); kind != "" {
			attrs = append(attrs, attribute.String("error.kind", string(kind)))
		}
		m.artifacts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	for _, t := range summary.Tenants {
		result := "ok"
		switch {
		case t.Err != nil:
			result = "skipped"
		case t.StateErr != nil:
			result = "state_failed"
		}
		m.tenants.Add(ctx, 1, metric.WithAttributes(mode, attribute.String("result", result)))
	}
}
