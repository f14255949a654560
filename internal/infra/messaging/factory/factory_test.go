package factory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/kafka"
	noopPublisher "github.com/aegis-tests/orchestrator/internal/infra/messaging/noop"
	pubsubPublisher "github.com/aegis-tests/orchestrator/internal/infra/messaging/pubsub"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/rabbitmq"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

type fakeChannel struct{ sent []string }

func (f *fakeChannel) PublishWithConfirm(_ context.Context, exchange, key string, _ amqp.Publishing) (rabbitmq.Confirmation, error) {
	f.sent = append(f.sent, exchange+"/"+key)
	return ackedConfirmation{}, nil
}

type ackedConfirmation struct{}

func (ackedConfirmation) WaitContext(context.Context) (bool, error) { return true, nil }

type fakePubSub struct{ topics []string }

func (f *fakePubSub) Publish(_ context.Context, topic string, _ *pubsub.Message) (string, error) {
	f.topics = append(f.topics, topic)
	return "id", nil
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

// dialCounts records which transports were dialed.
type dialCounts struct{ rabbit, pubsub, kafka int }

func testDialers(t *testing.T, counts *dialCounts, ch *fakeChannel, ps *fakePubSub, closer *closeCounter) Dialers {
	return Dialers{
		RabbitMQ: func(context.Context, Config, *logger.Logger) (rabbitmq.Channel, io.Closer, error) {
			counts.rabbit++
			return ch, closer, nil
		},
		PubSub: func(context.Context, Config) (pubsubPublisher.Client, io.Closer, error) {
			counts.pubsub++
			return ps, closer, nil
		},
		Kafka: func(context.Context, Config, *logger.Logger) (sarama.SyncProducer, error) {
			counts.kafka++
			producer := mocks.NewSyncProducer(t, kafka.NewProducerConfig("test"))
			producer.ExpectSendMessageAndSucceed()
			return producer, nil
		},
	}
}

func testEvent() specification.SpecificationCreatedEvent {
	return specification.SpecificationCreatedEvent{
		SpecificationID: 10,
		Title:           "Create invoice",
		InputType:       specification.InputTypeManual,
		TagIDs:          []int64{},
		CreatedAt:       time.Now(),
	}
}

func build(t *testing.T, cfg Config, d Dialers) (*Publisher, error) {
	t.Helper()
	return NewWithDialers(context.Background(), cfg, d, logger.Noop(), nil, noop.NewTracerProvider().Tracer("test"))
}

func TestNew_DefaultsToQueue(t *testing.T) {
	var counts dialCounts
	ch, closer := &fakeChannel{}, &closeCounter{}

	pub, err := build(t, Config{}, testDialers(t, &counts, ch, &fakePubSub{}, closer))
	require.NoError(t, err)
	assert.Equal(t, messaging.ProviderQueue, pub.Provider())
	assert.Equal(t, dialCounts{rabbit: 1}, counts)

	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), testEvent()))
	assert.Equal(t, []string{rabbitmq.ExchangeName + "/" + rabbitmq.RoutingKey}, ch.sent)

	require.NoError(t, pub.Close())
	assert.Equal(t, 1, closer.closed)
}

func TestNew_None(t *testing.T) {
	var counts dialCounts
	pub, err := build(t, Config{Provider: "NONE"}, testDialers(t, &counts, &fakeChannel{}, &fakePubSub{}, &closeCounter{}))
	require.NoError(t, err)

	assert.Equal(t, messaging.ProviderNone, pub.Provider())
	assert.IsType(t, &noopPublisher.Publisher{}, pub.EventPublisher)
	assert.Equal(t, dialCounts{}, counts)
	assert.NoError(t, pub.PublishSpecificationCreated(context.Background(), testEvent()))
	assert.NoError(t, pub.Close())
}

func TestNew_PubSub(t *testing.T) {
	var counts dialCounts
	ps := &fakePubSub{}
	pub, err := build(t,
		Config{Provider: messaging.ProviderPubSub, PubSubTopic: "custom-topic"},
		testDialers(t, &counts, &fakeChannel{}, ps, &closeCounter{}),
	)
	require.NoError(t, err)

	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), testEvent()))
	assert.Equal(t, []string{"custom-topic"}, ps.topics)
	assert.Equal(t, dialCounts{pubsub: 1}, counts)
}

func TestNew_TopicTransportsShareDefaultTopic(t *testing.T) {
	var counts dialCounts
	ps := &fakePubSub{}
	pub, err := build(t,
		Config{Provider: messaging.ProviderPubSub},
		testDialers(t, &counts, &fakeChannel{}, ps, &closeCounter{}),
	)
	require.NoError(t, err)

	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), testEvent()))
	assert.Equal(t, []string{messaging.DefaultTopic}, ps.topics)
	assert.Equal(t, messaging.DefaultTopic, pubsubPublisher.DefaultTopic)
	assert.Equal(t, messaging.DefaultTopic, kafka.DefaultTopic)
}

func TestNew_Kafka(t *testing.T) {
	var counts dialCounts
	pub, err := build(t,
		Config{Provider: messaging.ProviderKafka, KafkaTopic: "specs"},
		testDialers(t, &counts, &fakeChannel{}, &fakePubSub{}, &closeCounter{}),
	)
	require.NoError(t, err)

	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), testEvent()))
	assert.Equal(t, dialCounts{kafka: 1}, counts)
	require.NoError(t, pub.Close())
}

func TestNew_UnknownProvider(t *testing.T) {
	var counts dialCounts
	_, err := build(t, Config{Provider: "sqs"}, testDialers(t, &counts, &fakeChannel{}, &fakePubSub{}, &closeCounter{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqs")
	assert.Equal(t, dialCounts{}, counts)
}

func TestNew_DialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	d := Dialers{
		RabbitMQ: func(context.Context, Config, *logger.Logger) (rabbitmq.Channel, io.Closer, error) {
			return nil, nil, dialErr
		},
	}

	_, err := build(t, Config{Provider: messaging.ProviderQueue}, d)
	assert.ErrorIs(t, err, dialErr)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    messaging.Provider
		wantErr bool
	}{
		{in: "", want: messaging.ProviderQueue},
		{in: "queue", want: messaging.ProviderQueue},
		{in: " PubSub ", want: messaging.ProviderPubSub},
		{in: "none", want: messaging.ProviderNone},
		{in: "kafka", want: messaging.ProviderKafka},
		{in: "rabbitmq", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
