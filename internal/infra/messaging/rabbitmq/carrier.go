package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = tableCarrier{}

// tableCarrier adapts AMQP headers to the OpenTelemetry propagator.
type tableCarrier amqp.Table

func (c tableCarrier) Get(key string) string {
	v, ok := c[key].(string)
	if !ok {
		return ""
	}
	return v
}

func (c tableCarrier) Set(key, value string) { c[key] = value }

func (c tableCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}
