// Package factory picks the single event publisher a process uses, based on
// the configured messaging provider.
package factory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/kafka"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/noop"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/pubsub"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/rabbitmq"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// Config selects and configures the transport.
type Config struct {
	Provider          messaging.Provider
	ConnectMaxElapsed time.Duration

	RabbitMQURL            string
	RabbitMQConfirmTimeout time.Duration

	PubSubProjectID string
	PubSubTopic     string

	KafkaBrokers  []string
	KafkaTopic    string
	KafkaClientID string
}

// Dialers open transport connections. Tests replace them to avoid network I/O.
type Dialers struct {
	RabbitMQ func(ctx context.Context, cfg Config, log *logger.Logger) (rabbitmq.Channel, io.Closer, error)
	PubSub   func(ctx context.Context, cfg Config) (pubsub.Client, io.Closer, error)
	Kafka    func(ctx context.Context, cfg Config, log *logger.Logger) (sarama.SyncProducer, error)
}

// DefaultDialers connect to real brokers.
func DefaultDialers() Dialers {
	return Dialers{
		RabbitMQ: func(ctx context.Context, cfg Config, log *logger.Logger) (rabbitmq.Channel, io.Closer, error) {
			conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnectMaxElapsed, log)
			if err != nil {
				return nil, nil, err
			}
			return conn.Channel(), conn, nil
		},
		PubSub: func(ctx context.Context, cfg Config) (pubsub.Client, io.Closer, error) {
			client, err := pubsub.NewGCPClient(ctx, cfg.PubSubProjectID)
			if err != nil {
				return nil, nil, err
			}
			return client, client, nil
		},
		Kafka: func(ctx context.Context, cfg Config, log *logger.Logger) (sarama.SyncProducer, error) {
			return kafka.ConnectProducer(ctx, &kafka.ClientConfig{
				Brokers:  cfg.KafkaBrokers,
				ClientID: cfg.KafkaClientID,
			}, cfg.ConnectMaxElapsed, log)
		},
	}
}

// Publisher is the selected specification.EventPublisher together with the
// resources it owns.
type Publisher struct {
	specification.EventPublisher

	provider messaging.Provider
	closer   io.Closer
}

// Provider returns the transport that was selected.
func (p *Publisher) Provider() messaging.Provider { return p.provider }

// Close releases the transport connection, if any.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// ParseProvider normalizes a configured provider name. An empty value
// selects messaging.DefaultProvider.
func ParseProvider(s string) (messaging.Provider, error) {
	switch p := messaging.Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return messaging.DefaultProvider, nil
	case messaging.ProviderNone, messaging.ProviderQueue, messaging.ProviderPubSub, messaging.ProviderKafka:
		return p, nil
	default:
		return "", fmt.Errorf("unknown messaging provider %q", s)
	}
}

// New builds the publisher for cfg.Provider using DefaultDialers.
func New(
	ctx context.Context,
	cfg Config,
	log *logger.Logger,
	metrics messaging.PublisherMetrics,
	tracer trace.Tracer,
) (*Publisher, error) {
	return NewWithDialers(ctx, cfg, DefaultDialers(), log, metrics, tracer)
}

// NewWithDialers builds the publisher for cfg.Provider. It is called once at
// startup; the choice never changes while the process runs.
func NewWithDialers(
	ctx context.Context,
	cfg Config,
	dialers Dialers,
	log *logger.Logger,
	metrics messaging.PublisherMetrics,
	tracer trace.Tracer,
) (*Publisher, error) {
	provider, err := ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}

	pub := &Publisher{provider: provider}
	switch provider {
	case messaging.ProviderNone:
		pub.EventPublisher = noop.NewPublisher(log, metrics)

	case messaging.ProviderQueue:
		ch, closer, err := dialers.RabbitMQ(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connecting rabbitmq publisher: %w", err)
		}
		pub.EventPublisher = rabbitmq.NewPublisher(ch, cfg.RabbitMQConfirmTimeout, log, metrics, tracer)
		pub.closer = closer

	case messaging.ProviderPubSub:
		client, closer, err := dialers.PubSub(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connecting pubsub publisher: %w", err)
		}
		pub.EventPublisher = pubsub.NewPublisher(client, cfg.PubSubTopic, log, metrics, tracer)
		pub.closer = closer

	case messaging.ProviderKafka:
		producer, err := dialers.Kafka(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connecting kafka publisher: %w", err)
		}
		kp := kafka.NewPublisher(producer, cfg.KafkaTopic, log, metrics, tracer)
		pub.EventPublisher = kp
		pub.closer = kp
	}

	log.Info(ctx, "Event publisher selected", "provider", provider)
	return pub, nil
}
