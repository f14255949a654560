package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aegis-tests/orchestrator/internal/domain/events"
	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/errs"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

func invoiceEvent() specification.SpecificationCreatedEvent {
	method, path := "POST", "/api/v1/invoices"
	return specification.SpecificationCreatedEvent{
		SpecificationID: 10,
		Title:           "Create invoice",
		InputType:       specification.InputTypeManual,
		Method:          &method,
		Path:            &path,
		TagIDs:          []int64{5},
		CreatedAt:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return NewPublisher(producer, topic, logger.Noop(), nil, noop.NewTracerProvider().Tracer("test"))
}

func TestPublisher_SendsKeyedMessage(t *testing.T) {
	evt := invoiceEvent()
	want, err := json.Marshal(evt)
	require.NoError(t, err)

	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "specs", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "10", string(key))

		body, err := msg.Value.Encode()
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(body))

		carrier := &messageCarrier{headers: msg.Headers}
		assert.Equal(t, string(events.EventTypeSpecificationCreated), carrier.Get(events.HeaderEventType))
		assert.NotEmpty(t, carrier.Get(events.HeaderMessageID))
		return nil
	})

	pub := newTestPublisher(producer, "specs")
	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), evt))
	require.NoError(t, pub.Close())
}

func TestPublisher_FailureIsTransportFault(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	pub := newTestPublisher(producer, "")
	err := pub.PublishSpecificationCreated(context.Background(), invoiceEvent())
	require.Error(t, err)

	assert.True(t, errs.IsTransport(err))
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	assert.ErrorIs(t, err, specification.ErrPublishFailed)

	var pubErr *messaging.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, messaging.ProviderKafka, pubErr.Provider)
	assert.Equal(t, DefaultTopic, pubErr.Destination)
	require.NoError(t, pub.Close())
}

func TestMessageCarrier(t *testing.T) {
	c := &messageCarrier{}
	c.Set("traceparent", "00-abc-def-01")
	c.Set("tracestate", "k=v")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent", "tracestate"}, c.Keys())
}
