package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// Connection owns the AMQP connection and the confirm-mode channel publishers
// share.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials url with retries, opens a channel in confirm mode and
// declares the topology.
func Connect(ctx context.Context, url string, maxElapsed time.Duration, log *logger.Logger) (*Connection, error) {
	return messaging.ConnectWithRetry(ctx, log, "rabbitmq", maxElapsed, func(ctx context.Context) (*Connection, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dialing rabbitmq: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("opening channel: %w", err)
		}

		if err := ch.Confirm(false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enabling publisher confirms: %w", err)
		}

		if err := DeclareTopology(ch); err != nil {
			conn.Close()
			return nil, err
		}

		log.Info(ctx, "Connected to RabbitMQ", "exchange", ExchangeName, "queue", QueueName)
		return &Connection{conn: conn, channel: ch}, nil
	})
}

// Channel returns the publishing channel.
func (c *Connection) Channel() Channel { return confirmChannel{ch: c.channel} }

// Deliveries limits unacknowledged deliveries to prefetch and returns the
// channel as a DeliverySource.
func (c *Connection) Deliveries(prefetch int) (DeliverySource, error) {
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("setting prefetch: %w", err)
	}
	return c.channel, nil
}

// confirmChannel adapts *amqp.Channel to Channel.
type confirmChannel struct{ ch *amqp.Channel }

func (c confirmChannel) PublishWithConfirm(ctx context.Context, exchange, key string, msg amqp.Publishing) (Confirmation, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, nil
	}
	return dc, nil
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	if err := c.channel.Close(); err != nil && !c.conn.IsClosed() {
		return fmt.Errorf("closing channel: %w", err)
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}
