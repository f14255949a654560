package kafka

import (
	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = (*messageCarrier)(nil)

// messageCarrier implements propagation.TextMapCarrier for Kafka record
// headers.
type messageCarrier struct {
	headers []sarama.RecordHeader
}

func (mc *messageCarrier) Get(key string) string {
	for _, h := range mc.headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (mc *messageCarrier) Set(key, value string) {
	mc.headers = append(mc.headers, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (mc *messageCarrier) Keys() []string {
	out := make([]string, len(mc.headers))
	for i, h := range mc.headers {
		out[i] = string(h.Key)
	}
	return out
}
