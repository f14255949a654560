// Package messaging holds what every specification event transport shares:
// provider names, the publish error type, payload encoding, tracing helpers
// and publish metrics.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aegis-tests/orchestrator/internal/domain/events"
	"github.com/aegis-tests/orchestrator/internal/domain/specification"
)

// Provider names a transport selectable through configuration.
type Provider string

const (
	// ProviderNone disables messaging; events are logged and dropped.
	ProviderNone Provider = "none"
	// ProviderQueue publishes to a RabbitMQ exchange.
	ProviderQueue Provider = "queue"
	// ProviderPubSub publishes to a Google Cloud Pub/Sub topic.
	ProviderPubSub Provider = "pubsub"
	// ProviderKafka publishes to a Kafka topic.
	ProviderKafka Provider = "kafka"
)

// DefaultProvider is used when configuration does not name one.
const DefaultProvider = ProviderQueue

func (p Provider) String() string { return string(p) }

// DefaultTopic is the Pub/Sub and Kafka topic used when configuration leaves
// the topic empty.
const DefaultTopic = "aegis-test.test-generation.requested"

// ContentTypeJSON is the content type of every encoded event.
const ContentTypeJSON = "application/json"

// Message is an encoded event ready to hand to a transport.
type Message struct {
	ID      string
	Key     string
	Headers map[string]string
	Body    []byte
}

// Encode serializes evt to JSON and attaches a fresh message ID, the event
// type header and the specification ID as routing key.
func Encode(evt specification.SpecificationCreatedEvent, opts ...events.PublishOption) (Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s event: %w", evt.EventType(), err)
	}

	opts = append([]events.PublishOption{events.WithKey(evt.Key())}, opts...)
	env := events.NewEnvelope(evt, opts...)

	id := uuid.NewString()
	env.Headers[events.HeaderMessageID] = id

	return Message{ID: id, Key: env.Key, Headers: env.Headers, Body: body}, nil
}
