package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	started   metric.Int64Counter
	succeeded metric.Int64Counter
	retried   metric.Int64Counter
	dead      metric.Int64Counter
	duration  metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter("github.com/jaelee191/interview-app-sub001/internal/dispatch")

	var m metrics
	var err error
	if m.started, err = meter.Int64Counter("dispatch.jobs.started", metric.WithDescription("Job attempts started")); err != nil {
		return nil, err
	}
	if m.succeeded, err = meter.Int64Counter("dispatch.jobs.succeeded", metric.WithDescription("Job attempts that succeeded")); err != nil {
		return nil, err
	}
	if m.retried, err = meter.Int64Counter("dispatch.jobs.retried", metric.WithDescription("Failed attempts scheduled for retry")); err != nil {
		return nil, err
	}
	if m.dead, err = meter.Int64Counter("dispatch.jobs.dead", metric.WithDescription("Jobs dead-lettered")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("dispatch.job.duration", metric.WithUnit("s"), metric.WithDescription("Job attempt duration")); err != nil {
		return nil, err
	}
	return &m, nil
}

func jobAttrs(j Job) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("job.type", j.Type),
		attribute.String("job.queue", j.Queue),
	)
}

func (m *metrics) attempt(ctx context.Context, j Job, d time.Duration, err error) {
	attrs := jobAttrs(j)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if err == nil {
		m.succeeded.Add(ctx, 1, attrs)
	}
}
