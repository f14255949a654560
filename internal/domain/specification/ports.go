package specification

import "context"

// Repository defines the persistence operations for specifications.
type Repository interface {
	// CreateSpecification persists a new specification and assigns its ID.
	CreateSpecification(ctx context.Context, spec *Specification) error

	// GetSpecification retrieves a specification by ID. It returns
	// ErrSpecificationNotFound when none exists.
	GetSpecification(ctx context.Context, id int64) (*Specification, error)

	// UpdateStatus moves a stored specification from one status to another.
	// The write only applies while the stored status still equals from;
	// otherwise ErrStatusConflict is returned and nothing changes.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}

// APICallCatalog resolves cataloged API endpoints.
type APICallCatalog interface {
	// GetAPICall returns ErrAPICallNotFound for unknown ids.
	GetAPICall(ctx context.Context, id int64) (*APICall, error)
}

// EventPublisher delivers specification lifecycle notifications to
// downstream test generation workers. Exactly one implementation is active
// per process and it is chosen at startup.
//
// PublishSpecificationCreated returns once the transport has accepted or
// rejected the message. Implementations honour ctx for deadlines and never
// retry internally.
type EventPublisher interface {
	PublishSpecificationCreated(ctx context.Context, evt SpecificationCreatedEvent) error
}
