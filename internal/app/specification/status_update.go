package specification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	domain "github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/errs"
)

// StatusUpdate is a worker's report that a specification reached Status.
type StatusUpdate struct {
	SpecificationID int64  `json:"specificationId" validate:"gt=0"`
	Status          string `json:"status" validate:"required"`
}

var updateValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrMalformedStatusUpdate marks a status report that cannot be applied as
// sent. Redelivering it will not help.
var ErrMalformedStatusUpdate = errs.NewBusiness(errs.CodeInvalidFormat, "statusUpdate", "malformed status update")

// Approval decisions publish the ready event, so workers cannot report them.
var decisionStatuses = map[domain.Status]struct{}{
	domain.StatusApproved:          {},
	domain.StatusApprovedWithEdits: {},
	domain.StatusRejected:          {},
}

// HandleStatusUpdate decodes a JSON StatusUpdate and applies it through
// TransitionStatus.
func (s *Service) HandleStatusUpdate(ctx context.Context, body []byte) error {
	var upd StatusUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedStatusUpdate, err)
	}
	if err := updateValidator.Struct(upd); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedStatusUpdate, err)
	}

	target := domain.ParseStatus(upd.Status)
	if target == domain.StatusUnspecified {
		return fmt.Errorf("%w: unknown status %q", ErrMalformedStatusUpdate, upd.Status)
	}
	if _, ok := decisionStatuses[target]; ok {
		return fmt.Errorf("%w: status %s is set by an approval decision", ErrMalformedStatusUpdate, target)
	}

	s.logger.Debug(ctx, "Applying status update",
		"specification_id", upd.SpecificationID,
		"target", target,
	)
	_, err := s.TransitionStatus(ctx, upd.SpecificationID, target)
	return err
}
