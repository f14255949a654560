package specification

import (
	"fmt"

	"github.com/aegis-tests/orchestrator/internal/errs"
)

var (
	// ErrSpecificationNotFound is returned by repositories when no
	// specification has the requested id.
	ErrSpecificationNotFound = errs.NewBusiness(errs.CodeNotFound, "specificationId", "specification not found")

	// ErrAPICallNotFound is returned when an API_CALL specification references
	// an id missing from the catalog.
	ErrAPICallNotFound = errs.NewBusiness(errs.CodeNotFound, "apiCallId", "api call not found")

	// ErrStatusConflict is returned by repositories when the stored status no
	// longer matches the status a transition was validated against.
	ErrStatusConflict = errs.NewBusiness(
		errs.CodeConcurrentModification,
		"status",
		"specification status was modified concurrently",
	)

	// ErrPublishFailed marks a persisted change whose downstream notification
	// could not be delivered.
	ErrPublishFailed = errs.NewTransport(errs.CodeEventPublishFailed, "specification event publish failed", nil)
)

var _ errs.Classified = (*InvalidStatusTransitionError)(nil)

// InvalidStatusTransitionError is returned by the transition guard. It signals
// a bug in the caller (for example an attempt to skip states), not bad user
// input, and is classified as an internal fault.
type InvalidStatusTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func newInvalidStatusTransitionError(from, to Status) *InvalidStatusTransitionError {
	return &InvalidStatusTransitionError{
		From:    from,
		To:      to,
		Allowed: AllowedTransitionsFrom(from),
	}
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf(
		"invalid specification status transition: %s -> %s. allowed transitions from %s: %v",
		displayStatus(e.From), displayStatus(e.To), displayStatus(e.From), e.Allowed,
	)
}

// Kind always reports an internal fault.
func (e *InvalidStatusTransitionError) Kind() errs.Kind { return errs.KindInternal }

// Code returns INVALID_STATUS_TRANSITION.
func (e *InvalidStatusTransitionError) Code() errs.Code { return errs.CodeInvalidStatusTransition }

func displayStatus(s Status) string {
	if s == StatusUnspecified {
		return "<unspecified>"
	}
	return string(s)
}
