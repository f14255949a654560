package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/errs"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// ErrDeliveriesClosed is returned by Run when the broker stops delivering
// before the context is done.
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// DeliverySource is the subset of *amqp.Channel used to consume.
type DeliverySource interface {
	ConsumeWithContext(
		ctx context.Context,
		queue, consumer string,
		autoAck, exclusive, noLocal, noWait bool,
		args amqp.Table,
	) (<-chan amqp.Delivery, error)
}

// StatusHandler applies the body of one status report.
type StatusHandler func(ctx context.Context, body []byte) error

// Consumer reads worker status reports from StatusQueueName. A report is
// acked once handled, requeued once when the failure is retryable and dropped
// otherwise.
type Consumer struct {
	source  DeliverySource
	handler StatusHandler

	logger  *logger.Logger
	metrics messaging.ConsumerMetrics
	tracer  trace.Tracer
}

// NewConsumer creates a consumer that passes every delivery to handler.
func NewConsumer(
	source DeliverySource,
	handler StatusHandler,
	log *logger.Logger,
	metrics messaging.ConsumerMetrics,
	tracer trace.Tracer,
) *Consumer {
	if metrics == nil {
		metrics = messaging.NoopConsumerMetrics()
	}
	return &Consumer{
		source:  source,
		handler: handler,
		logger:  log.With("component", "rabbitmq_status_consumer"),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Run consumes until ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.ConsumeWithContext(ctx, StatusQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", StatusQueueName, err)
	}
	c.logger.Info(ctx, "Consuming status updates", "queue", StatusQueueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	ctx = messaging.ExtractTraceContext(ctx, tableCarrier(d.Headers))
	ctx, span := messaging.StartConsumerSpan(ctx, c.tracer, messaging.ProviderQueue, "rabbitmq", StatusQueueName)
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.message_id", d.MessageId),
		attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
	)

	err := c.handler(ctx, d.Body)
	if err == nil {
		span.SetStatus(codes.Ok, "handled")
		c.metrics.IncMessageConsumed(ctx, messaging.ProviderQueue, StatusQueueName)
		if err := d.Ack(false); err != nil {
			c.logger.Error(ctx, "Failed to ack status update", "message_id", d.MessageId, "error", err)
		}
		return
	}

	requeue := errs.IsRetryable(err) && !d.Redelivered
	span.RecordError(err)
	span.SetStatus(codes.Error, "status update failed")
	c.metrics.IncConsumeError(ctx, messaging.ProviderQueue, StatusQueueName)
	c.logger.Error(ctx, "Failed to apply status update",
		"message_id", d.MessageId,
		"redelivered", d.Redelivered,
		"requeue", requeue,
		"error", err,
	)
	if err := d.Nack(false, requeue); err != nil {
		c.logger.Error(ctx, "Failed to nack status update", "message_id", d.MessageId, "error", err)
	}
}
