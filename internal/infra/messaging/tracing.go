package messaging

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartProducerSpan creates a span for publishing one message.
func StartProducerSpan(
	ctx context.Context,
	tracer trace.Tracer,
	provider Provider,
	system, destination string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, system+".produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", system),
			attribute.String("messaging.destination", destination),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.provider", provider.String()),
		),
	)
}

// RecordPublishError marks span as failed.
func RecordPublishError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "publish failed")
}

// InjectTraceContext writes the current trace context into carrier using the
// globally configured propagator.
func InjectTraceContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractTraceContext returns ctx carrying the remote trace context found in
// carrier, if any.
func ExtractTraceContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// StartConsumerSpan creates a span for handling one received message.
func StartConsumerSpan(
	ctx context.Context,
	tracer trace.Tracer,
	provider Provider,
	system, source string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, system+".consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", system),
			attribute.String("messaging.source", source),
			attribute.String("messaging.operation", "process"),
			attribute.String("messaging.provider", provider.String()),
		),
	)
}
