package messaging

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PublisherMetrics records publish outcomes for every transport.
type PublisherMetrics interface {
	IncMessagePublished(ctx context.Context, provider Provider, destination string)
	IncPublishError(ctx context.Context, provider Provider, destination string)
	IncPublishSkipped(ctx context.Context, provider Provider)
}

// ConsumerMetrics records the outcome of handling received messages.
type ConsumerMetrics interface {
	IncMessageConsumed(ctx context.Context, provider Provider, source string)
	IncConsumeError(ctx context.Context, provider Provider, source string)
}

// PrometheusMetrics implements PublisherMetrics and ConsumerMetrics with
// Prometheus counters.
type PrometheusMetrics struct {
	published     *prometheus.CounterVec
	errors        *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	consumed      *prometheus.CounterVec
	consumeErrors *prometheus.CounterVec
}

var (
	_ PublisherMetrics = (*PrometheusMetrics)(nil)
	_ ConsumerMetrics  = (*PrometheusMetrics)(nil)
)

// NewPrometheusMetrics registers the publisher and consumer counters with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "events_published_total",
				Help:      "Total number of specification events accepted by the transport",
			},
			[]string{"provider", "destination"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "event_publish_errors_total",
				Help:      "Total number of specification events the transport failed to accept",
			},
			[]string{"provider", "destination"},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "events_skipped_total",
				Help:      "Total number of specification events dropped because messaging is disabled",
			},
			[]string{"provider"},
		),
		consumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "messages_consumed_total",
				Help:      "Total number of received messages handled successfully",
			},
			[]string{"provider", "source"},
		),
		consumeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "consume_errors_total",
				Help:      "Total number of received messages whose handling failed",
			},
			[]string{"provider", "source"},
		),
	}
}

func (m *PrometheusMetrics) IncMessagePublished(_ context.Context, provider Provider, destination string) {
	m.published.WithLabelValues(provider.String(), destination).Inc()
}

func (m *PrometheusMetrics) IncPublishError(_ context.Context, provider Provider, destination string) {
	m.errors.WithLabelValues(provider.String(), destination).Inc()
}

func (m *PrometheusMetrics) IncPublishSkipped(_ context.Context, provider Provider) {
	m.skipped.WithLabelValues(provider.String()).Inc()
}

func (m *PrometheusMetrics) IncMessageConsumed(_ context.Context, provider Provider, source string) {
	m.consumed.WithLabelValues(provider.String(), source).Inc()
}

func (m *PrometheusMetrics) IncConsumeError(_ context.Context, provider Provider, source string) {
	m.consumeErrors.WithLabelValues(provider.String(), source).Inc()
}

type noopMetrics struct{}

func (noopMetrics) IncMessagePublished(context.Context, Provider, string) {}
func (noopMetrics) IncPublishError(context.Context, Provider, string)     {}
func (noopMetrics) IncPublishSkipped(context.Context, Provider)           {}
func (noopMetrics) IncMessageConsumed(context.Context, Provider, string)  {}
func (noopMetrics) IncConsumeError(context.Context, Provider, string)     {}

// NoopMetrics returns a PublisherMetrics that records nothing.
func NoopMetrics() PublisherMetrics { return noopMetrics{} }

// NoopConsumerMetrics returns a ConsumerMetrics that records nothing.
func NoopConsumerMetrics() ConsumerMetrics { return noopMetrics{} }
