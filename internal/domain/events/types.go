// Package events provides the vocabulary shared by domain events and the
// transports that carry them across process boundaries.
package events

// EventType represents a domain event category, enabling type-safe event
// routing and handling.
type EventType string

// Domain event type constants.
const (
	// EventTypeSpecificationCreated is raised when a specification becomes
	// actionable for test generation workers.
	EventTypeSpecificationCreated EventType = "SpecificationCreated"
)

// Header names every transport attaches to outgoing messages.
const (
	HeaderEventType = "event-type"
	HeaderMessageID = "message-id"
)

// PublishOption is a function type that modifies PublishParams.
// It enables flexible configuration of event publishing behavior through functional options.
type PublishOption func(*PublishParams)

// PublishParams contains configuration options for publishing domain events.
type PublishParams struct {
	// Key is used as a partition or ordering key to control event routing.
	Key string
	// Headers contain metadata key-value pairs attached to the event.
	Headers map[string]string
}

// WithKey returns a PublishOption that sets the routing key for an event.
func WithKey(key string) PublishOption {
	return func(p *PublishParams) { p.Key = key }
}

// WithHeaders returns a PublishOption that attaches metadata headers to an event.
func WithHeaders(headers map[string]string) PublishOption {
	return func(p *PublishParams) { p.Headers = headers }
}
