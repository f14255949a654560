package messaging

import (
	"fmt"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/errs"
)

var _ errs.Classified = (*PublishError)(nil)

// PublishError reports that a transport refused or failed to deliver an
// event. It is a transport fault, never a validation or logic error.
type PublishError struct {
	Provider    Provider
	Destination string
	Err         error
}

// NewPublishError wraps err with the transport and destination it failed on.
func NewPublishError(provider Provider, destination string, err error) *PublishError {
	return &PublishError{Provider: provider, Destination: destination, Err: err}
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing specification event via %s to %q: %v", e.Provider, e.Destination, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Is lets callers match any publish failure with specification.ErrPublishFailed.
func (e *PublishError) Is(target error) bool { return target == specification.ErrPublishFailed }

// Kind always reports a transport fault.
func (e *PublishError) Kind() errs.Kind { return errs.KindTransport }

// Code returns EVENT_PUBLISH_FAILED.
func (e *PublishError) Code() errs.Code { return errs.CodeEventPublishFailed }
