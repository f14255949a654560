package specification

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/aegis-tests/orchestrator/internal/domain/specification"
)

// Metrics defines the measurements the specification service records.
type Metrics interface {
	IncSpecificationsCreated(ctx context.Context, inputType domain.InputType, initial domain.Status)
	IncStatusTransitions(ctx context.Context, from, to domain.Status)
	IncInvalidTransitions(ctx context.Context, from, to domain.Status)
	IncStatusConflicts(ctx context.Context)
	IncUndeliveredEvents(ctx context.Context)
	ObservePublishDuration(ctx context.Context, d time.Duration)
}

// serviceMetrics implements Metrics with OpenTelemetry instruments.
type serviceMetrics struct {
	specificationsCreated metric.Int64Counter
	statusTransitions     metric.Int64Counter
	invalidTransitions    metric.Int64Counter
	statusConflicts       metric.Int64Counter
	undeliveredEvents     metric.Int64Counter
	publishDuration       metric.Float64Histogram
}

const namespace = "specification_service"

// NewMetrics creates the service instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*serviceMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(serviceMetrics)
	var err error

	if m.specificationsCreated, err = meter.Int64Counter(
		"specifications_created_total",
		metric.WithDescription("Total number of specifications created"),
	); err != nil {
		return nil, err
	}

	if m.statusTransitions, err = meter.Int64Counter(
		"status_transitions_total",
		metric.WithDescription("Total number of persisted specification status transitions"),
	); err != nil {
		return nil, err
	}

	if m.invalidTransitions, err = meter.Int64Counter(
		"invalid_transitions_total",
		metric.WithDescription("Total number of transitions rejected by the lifecycle table"),
	); err != nil {
		return nil, err
	}

	if m.statusConflicts, err = meter.Int64Counter(
		"status_conflicts_total",
		metric.WithDescription("Total number of transitions lost to a concurrent writer"),
	); err != nil {
		return nil, err
	}

	if m.undeliveredEvents, err = meter.Int64Counter(
		"undelivered_events_total",
		metric.WithDescription("Total number of persisted changes whose event could not be published"),
	); err != nil {
		return nil, err
	}

	if m.publishDuration, err = meter.Float64Histogram(
		"event_publish_duration_seconds",
		metric.WithDescription("Time spent publishing specification events"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *serviceMetrics) IncSpecificationsCreated(ctx context.Context, inputType domain.InputType, initial domain.Status) {
	m.specificationsCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("input_type", inputType.String()),
		attribute.String("initial_status", initial.String()),
	))
}

func (m *serviceMetrics) IncStatusTransitions(ctx context.Context, from, to domain.Status) {
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (m *serviceMetrics) IncInvalidTransitions(ctx context.Context, from, to domain.Status) {
	m.invalidTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (m *serviceMetrics) IncStatusConflicts(ctx context.Context) {
	m.statusConflicts.Add(ctx, 1)
}

func (m *serviceMetrics) IncUndeliveredEvents(ctx context.Context) {
	m.undeliveredEvents.Add(ctx, 1)
}

func (m *serviceMetrics) ObservePublishDuration(ctx context.Context, d time.Duration) {
	m.publishDuration.Record(ctx, d.Seconds())
}
