// Package noop provides the publisher used when messaging is disabled.
package noop

import (
	"context"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

var _ specification.EventPublisher = (*Publisher)(nil)

// Publisher drops every event after logging it. It performs no I/O and never
// fails.
type Publisher struct {
	logger  *logger.Logger
	metrics messaging.PublisherMetrics
}

// NewPublisher creates a publisher that only logs.
func NewPublisher(log *logger.Logger, metrics messaging.PublisherMetrics) *Publisher {
	if metrics == nil {
		metrics = messaging.NoopMetrics()
	}
	return &Publisher{
		logger:  log.With("component", "noop_event_publisher"),
		metrics: metrics,
	}
}

// PublishSpecificationCreated logs the skipped publish and returns nil.
func (p *Publisher) PublishSpecificationCreated(ctx context.Context, evt specification.SpecificationCreatedEvent) error {
	p.logger.Info(ctx, "Messaging disabled, skipping publish",
		"specification_id", evt.SpecificationID,
		"event_type", evt.EventType(),
	)
	p.metrics.IncPublishSkipped(ctx, messaging.ProviderNone)
	return nil
}
