package events

import "time"

// DomainEvent is implemented by every event the domain raises. It exposes
// enough metadata for transports to route and timestamp the event without
// knowing its concrete type.
type DomainEvent interface {
	EventType() EventType
	OccurredAt() time.Time
}

// EventEnvelope wraps a domain event with the routing metadata a transport
// attaches to it on the way out.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key enables consistent event routing, typically a business identifier
	// such as a specification ID.
	Key string

	// Headers contain metadata key-value pairs attached to the event.
	Headers map[string]string

	// Timestamp records when this event was created.
	Timestamp time.Time

	// Payload contains the actual event data. The concrete type depends on
	// the EventType.
	Payload DomainEvent
}

// NewEnvelope wraps evt and applies opts.
func NewEnvelope(evt DomainEvent, opts ...PublishOption) EventEnvelope {
	var params PublishParams
	for _, opt := range opts {
		opt(&params)
	}

	headers := make(map[string]string, len(params.Headers)+1)
	for k, v := range params.Headers {
		headers[k] = v
	}
	headers[HeaderEventType] = string(evt.EventType())

	return EventEnvelope{
		Type:      evt.EventType(),
		Key:       params.Key,
		Headers:   headers,
		Timestamp: evt.OccurredAt(),
		Payload:   evt,
	}
}
