// Package pubsub publishes specification events to a Google Cloud Pub/Sub
// topic.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

var _ specification.EventPublisher = (*Publisher)(nil)

// DefaultTopic is used when configuration leaves the topic empty.
const DefaultTopic = messaging.DefaultTopic

// Publisher sends specification events to a single configured topic.
type Publisher struct {
	client Client
	topic  string

	logger  *logger.Logger
	metrics messaging.PublisherMetrics
	tracer  trace.Tracer
}

// NewPublisher creates a publisher for topic. An empty topic selects
// DefaultTopic.
func NewPublisher(
	client Client,
	topic string,
	log *logger.Logger,
	metrics messaging.PublisherMetrics,
	tracer trace.Tracer,
) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if metrics == nil {
		metrics = messaging.NoopMetrics()
	}
	return &Publisher{
		client:  client,
		topic:   topic,
		logger:  log.With("component", "pubsub_event_publisher", "topic", topic),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string { return p.topic }

// PublishSpecificationCreated publishes evt and waits for the server result.
func (p *Publisher) PublishSpecificationCreated(ctx context.Context, evt specification.SpecificationCreatedEvent) error {
	ctx, span := messaging.StartProducerSpan(ctx, p.tracer, messaging.ProviderPubSub, "gcp_pubsub", p.topic)
	defer span.End()
	span.SetAttributes(attribute.Int64("specification_id", evt.SpecificationID))

	serverID, err := p.publish(ctx, evt)
	if err != nil {
		messaging.RecordPublishError(span, err)
		p.metrics.IncPublishError(ctx, messaging.ProviderPubSub, p.topic)
		p.logger.Error(ctx, "Failed to publish specification event",
			"specification_id", evt.SpecificationID,
			"error", err,
		)
		return messaging.NewPublishError(messaging.ProviderPubSub, p.topic, err)
	}

	span.SetAttributes(attribute.String("messaging.message_id", serverID))
	span.SetStatus(codes.Ok, "published")
	p.metrics.IncMessagePublished(ctx, messaging.ProviderPubSub, p.topic)
	p.logger.Info(ctx, "Published specification event",
		"specification_id", evt.SpecificationID,
		"server_message_id", serverID,
	)

	return nil
}

func (p *Publisher) publish(ctx context.Context, evt specification.SpecificationCreatedEvent) (string, error) {
	msg, err := messaging.Encode(evt)
	if err != nil {
		return "", err
	}

	attrs := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		attrs[k] = v
	}
	attrs["content-type"] = messaging.ContentTypeJSON
	messaging.InjectTraceContext(ctx, propagation.MapCarrier(attrs))

	serverID, err := p.client.Publish(ctx, p.topic, &pubsub.Message{
		Data:       msg.Body,
		Attributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("publishing to topic: %w", err)
	}
	return serverID, nil
}
