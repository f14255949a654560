package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

var _ specification.EventPublisher = (*Publisher)(nil)

// DefaultConfirmTimeout bounds the wait for a broker confirm when the caller's
// context carries no deadline.
const DefaultConfirmTimeout = 5 * time.Second

var errNacked = errors.New("broker nacked message")

// Confirmation is a pending broker confirm for one published message.
type Confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// Channel publishes a message and returns its pending confirm, or nil when the
// channel is not in confirm mode.
type Channel interface {
	PublishWithConfirm(ctx context.Context, exchange, key string, msg amqp.Publishing) (Confirmation, error)
}

// Publisher sends specification events to ExchangeName with RoutingKey.
type Publisher struct {
	channel        Channel
	confirmTimeout time.Duration

	logger  *logger.Logger
	metrics messaging.PublisherMetrics
	tracer  trace.Tracer
}

// NewPublisher creates a publisher over an already configured channel. When
// the channel is in confirm mode every publish waits for the broker's ack.
func NewPublisher(
	ch Channel,
	confirmTimeout time.Duration,
	log *logger.Logger,
	metrics messaging.PublisherMetrics,
	tracer trace.Tracer,
) *Publisher {
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	if metrics == nil {
		metrics = messaging.NoopMetrics()
	}
	return &Publisher{
		channel:        ch,
		confirmTimeout: confirmTimeout,
		logger:         log.With("component", "rabbitmq_event_publisher"),
		metrics:        metrics,
		tracer:         tracer,
	}
}

// PublishSpecificationCreated publishes evt as a persistent JSON message and
// waits for the broker confirm. No retry is attempted.
func (p *Publisher) PublishSpecificationCreated(ctx context.Context, evt specification.SpecificationCreatedEvent) error {
	ctx, span := messaging.StartProducerSpan(ctx, p.tracer, messaging.ProviderQueue, "rabbitmq", ExchangeName)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("specification_id", evt.SpecificationID),
		attribute.String("messaging.rabbitmq.routing_key", RoutingKey),
	)

	if err := p.publish(ctx, evt); err != nil {
		messaging.RecordPublishError(span, err)
		p.metrics.IncPublishError(ctx, messaging.ProviderQueue, ExchangeName)
		p.logger.Error(ctx, "Failed to publish specification event",
			"specification_id", evt.SpecificationID,
			"exchange", ExchangeName,
			"routing_key", RoutingKey,
			"error", err,
		)
		return messaging.NewPublishError(messaging.ProviderQueue, ExchangeName, err)
	}

	span.SetStatus(codes.Ok, "published")
	p.metrics.IncMessagePublished(ctx, messaging.ProviderQueue, ExchangeName)
	p.logger.Info(ctx, "Published specification event",
		"specification_id", evt.SpecificationID,
		"exchange", ExchangeName,
		"routing_key", RoutingKey,
	)

	return nil
}

func (p *Publisher) publish(ctx context.Context, evt specification.SpecificationCreatedEvent) error {
	msg, err := messaging.Encode(evt)
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	messaging.InjectTraceContext(ctx, tableCarrier(headers))

	confirm, err := p.channel.PublishWithConfirm(ctx, ExchangeName, RoutingKey, amqp.Publishing{
		ContentType:  messaging.ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    evt.OccurredAt(),
		Type:         string(evt.EventType()),
		Headers:      headers,
		Body:         msg.Body,
	})
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	if confirm == nil {
		// Channel is not in confirm mode.
		return nil
	}

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.confirmTimeout)
		defer cancel()
	}

	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for broker confirm: %w", err)
	}
	if !acked {
		return errNacked
	}
	return nil
}
