// Package kafka publishes specification events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// DefaultTopic is used when configuration leaves the topic empty.
const DefaultTopic = messaging.DefaultTopic

// ClientConfig contains everything needed to build the producer.
type ClientConfig struct {
	Brokers  []string
	ClientID string
}

// NewProducerConfig returns the sarama settings shared by every producer:
// all in-sync replicas must ack and successes are reported so SendMessage
// blocks until the broker answers.
func NewProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID

	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Retry.Max = 0
	config.Producer.Idempotent = false

	// Version should be consistent across all components
	config.Version = sarama.V3_6_0_0

	return config
}

// ConnectProducer creates a SyncProducer, retrying with backoff while the
// brokers are unreachable.
func ConnectProducer(
	ctx context.Context,
	cfg *ClientConfig,
	maxElapsed time.Duration,
	log *logger.Logger,
) (sarama.SyncProducer, error) {
	return messaging.ConnectWithRetry(ctx, log, "kafka", maxElapsed, func(ctx context.Context) (sarama.SyncProducer, error) {
		producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
		if err != nil {
			return nil, fmt.Errorf("creating producer: %w", err)
		}
		log.Info(ctx, "Connected to Kafka", "brokers", cfg.Brokers)
		return producer, nil
	})
}
