package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

var _ specification.EventPublisher = (*Publisher)(nil)

// Publisher sends specification events to one topic, keyed by specification
// ID so every event for a specification lands on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string

	logger  *logger.Logger
	metrics messaging.PublisherMetrics
	tracer  trace.Tracer
}

// NewPublisher creates a publisher for topic. An empty topic selects
// DefaultTopic.
func NewPublisher(
	producer sarama.SyncProducer,
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
		producer: producer,
		topic:    topic,
		logger:   log.With("component", "kafka_event_publisher", "topic", topic),
		metrics:  metrics,
		tracer:   tracer,
	}
}

// PublishSpecificationCreated sends evt and blocks until the broker acks.
func (p *Publisher) PublishSpecificationCreated(ctx context.Context, evt specification.SpecificationCreatedEvent) error {
	ctx, span := messaging.StartProducerSpan(ctx, p.tracer, messaging.ProviderKafka, "kafka", p.topic)
	defer span.End()
	span.SetAttributes(attribute.Int64("specification_id", evt.SpecificationID))

	msg, err := messaging.Encode(evt)
	if err != nil {
		return p.fail(ctx, span, evt, err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Body),
	}
	carrier := &messageCarrier{}
	for k, v := range msg.Headers {
		carrier.Set(k, v)
	}
	messaging.InjectTraceContext(ctx, carrier)
	kafkaMsg.Headers = carrier.headers

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		return p.fail(ctx, span, evt, fmt.Errorf("sending message: %w", err))
	}

	span.SetAttributes(
		attribute.Int64("messaging.kafka.partition", int64(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "published")
	p.metrics.IncMessagePublished(ctx, messaging.ProviderKafka, p.topic)
	p.logger.Debug(ctx, "Published specification event",
		"specification_id", evt.SpecificationID,
		"partition", partition,
		"offset", offset,
		"key", msg.Key,
	)

	return nil
}

func (p *Publisher) fail(
	ctx context.Context,
	span trace.Span,
	evt specification.SpecificationCreatedEvent,
	err error,
) error {
	messaging.RecordPublishError(span, err)
	p.metrics.IncPublishError(ctx, messaging.ProviderKafka, p.topic)
	p.logger.Error(ctx, "Failed to publish specification event",
		"specification_id", evt.SpecificationID,
		"error", err,
	)
	return messaging.NewPublishError(messaging.ProviderKafka, p.topic, err)
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error { return p.producer.Close() }
