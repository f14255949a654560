// Package specification drives specifications through their lifecycle: it
// validates every status change against the transition table, persists it and
// notifies test generation workers once a specification becomes actionable.
package specification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// CreateCommand carries the caller's input for a new specification.
type CreateCommand struct {
	TestProjectID           int64
	Title                   string
	Description             string
	InputType               domain.InputType
	Method                  string
	Path                    string
	TestObjective           string
	RequestExample          string
	RequiresAuth            bool
	ApproveBeforeGeneration bool
	AuthProfileID           *int64
	APICallID               *int64
	TagIDs                  []int64
	CreatedBy               string
}

// Service is the only writer of specification status.
type Service struct {
	repo      domain.Repository
	catalog   domain.APICallCatalog
	publisher domain.EventPublisher

	timeProvider domain.TimeProvider
	metrics      Metrics
	logger       *logger.Logger
	tracer       trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTimeProvider overrides the clock used for new specifications.
func WithTimeProvider(tp domain.TimeProvider) Option {
	return func(s *Service) { s.timeProvider = tp }
}

// NewService creates a Service.
func NewService(
	repo domain.Repository,
	catalog domain.APICallCatalog,
	publisher domain.EventPublisher,
	metrics Metrics,
	logger *logger.Logger,
	tracer trace.Tracer,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("component", "specification_service"),
		tracer:    tracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSpecification validates and persists a new specification. When no
// approval is required the created event is published right away.
//
// A publish failure does not undo the insert: the persisted specification is
// returned together with an error matching domain.ErrPublishFailed.
func (s *Service) CreateSpecification(ctx context.Context, cmd CreateCommand) (*domain.Specification, error) {
	ctx, span := s.tracer.Start(ctx, "specification_service.create",
		trace.WithAttributes(
			attribute.String("input_type", cmd.InputType.String()),
			attribute.Bool("approve_before_generation", cmd.ApproveBeforeGeneration),
		),
	)
	defer span.End()

	params := domain.NewParams{
		TestProjectID:           cmd.TestProjectID,
		Title:                   cmd.Title,
		Description:             cmd.Description,
		InputType:               cmd.InputType,
		Method:                  cmd.Method,
		Path:                    cmd.Path,
		TestObjective:           cmd.TestObjective,
		RequestExample:          cmd.RequestExample,
		RequiresAuth:            cmd.RequiresAuth,
		ApproveBeforeGeneration: cmd.ApproveBeforeGeneration,
		AuthProfileID:           cmd.AuthProfileID,
		APICallID:               cmd.APICallID,
		TagIDs:                  cmd.TagIDs,
		CreatedBy:               cmd.CreatedBy,
	}

	if cmd.InputType == domain.InputTypeAPICall && cmd.APICallID != nil {
		call, err := s.catalog.GetAPICall(ctx, *cmd.APICallID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to resolve api call")
			return nil, fmt.Errorf("failed to resolve api call %d: %w", *cmd.APICallID, err)
		}
		params.APICall = call
	}

	spec, err := domain.NewSpecification(params, s.timeProvider)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid specification")
		return nil, err
	}

	if err := s.repo.CreateSpecification(ctx, spec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist specification")
		return nil, fmt.Errorf("failed to create specification: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("specification_id", spec.ID()),
		attribute.String("status", spec.Status().String()),
	)
	span.AddEvent("specification_created")
	s.metrics.IncSpecificationsCreated(ctx, spec.InputType(), spec.Status())
	s.logger.Info(ctx, "Specification created",
		"specification_id", spec.ID(),
		"status", spec.Status(),
		"input_type", spec.InputType(),
	)

	if spec.RequiresApproval() {
		span.SetStatus(codes.Ok, "specification awaiting approval")
		return spec, nil
	}

	if err := s.publishReady(ctx, spec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "specification created but event not delivered")
		return spec, err
	}

	span.SetStatus(codes.Ok, "specification created")
	return spec, nil
}

// GetSpecification loads a specification by ID.
func (s *Service) GetSpecification(ctx context.Context, id int64) (*domain.Specification, error) {
	ctx, span := s.tracer.Start(ctx, "specification_service.get",
		trace.WithAttributes(attribute.Int64("specification_id", id)))
	defer span.End()

	spec, err := s.repo.GetSpecification(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get specification")
		return nil, fmt.Errorf("failed to get specification %d: %w", id, err)
	}

	span.SetStatus(codes.Ok, "specification loaded")
	return spec, nil
}

// ApproveSpecification records the human decision on a planned specification
// and publishes the event that starts test generation.
func (s *Service) ApproveSpecification(ctx context.Context, id int64, withEdits bool) (*domain.Specification, error) {
	target := domain.StatusApproved
	if withEdits {
		target = domain.StatusApprovedWithEdits
	}

	ctx, span := s.tracer.Start(ctx, "specification_service.approve",
		trace.WithAttributes(
			attribute.Int64("specification_id", id),
			attribute.Bool("with_edits", withEdits),
		),
	)
	defer span.End()

	spec, err := s.transition(ctx, id, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to approve specification")
		return nil, err
	}

	if err := s.publishReady(ctx, spec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "specification approved but event not delivered")
		return spec, err
	}

	span.SetStatus(codes.Ok, "specification approved")
	return spec, nil
}

// RejectSpecification sends a planned specification back for replanning.
func (s *Service) RejectSpecification(ctx context.Context, id int64) (*domain.Specification, error) {
	ctx, span := s.tracer.Start(ctx, "specification_service.reject",
		trace.WithAttributes(attribute.Int64("specification_id", id)))
	defer span.End()

	spec, err := s.transition(ctx, id, domain.StatusRejected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reject specification")
		return nil, err
	}

	span.SetStatus(codes.Ok, "specification rejected")
	return spec, nil
}

// TransitionStatus moves a specification to target. Workers use it to report
// progress (PROCESSING, PLANNING, ..., ERROR).
func (s *Service) TransitionStatus(ctx context.Context, id int64, target domain.Status) (*domain.Specification, error) {
	ctx, span := s.tracer.Start(ctx, "specification_service.transition_status",
		trace.WithAttributes(
			attribute.Int64("specification_id", id),
			attribute.String("target_status", target.String()),
		),
	)
	defer span.End()

	spec, err := s.transition(ctx, id, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to transition specification")
		return nil, err
	}

	span.SetStatus(codes.Ok, "specification transitioned")
	return spec, nil
}

// transition loads the specification, runs the guard and persists the change
// with a compare-and-set on the status it was validated against.
func (s *Service) transition(ctx context.Context, id int64, target domain.Status) (*domain.Specification, error) {
	span := trace.SpanFromContext(ctx)

	spec, err := s.repo.GetSpecification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get specification %d: %w", id, err)
	}

	from := spec.Status()
	if err := spec.UpdateStatus(target); err != nil {
		s.metrics.IncInvalidTransitions(ctx, from, target)
		s.logger.Error(ctx, "Rejected specification status transition",
			"specification_id", id,
			"from", from,
			"to", target,
			"error", err,
		)
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, from, target); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			s.metrics.IncStatusConflicts(ctx)
			s.logger.Warn(ctx, "Specification status changed concurrently",
				"specification_id", id,
				"expected", from,
				"target", target,
			)
		}
		return nil, fmt.Errorf("failed to persist status %s for specification %d: %w", target, id, err)
	}

	span.AddEvent("status_transitioned", trace.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", target.String()),
	))
	s.metrics.IncStatusTransitions(ctx, from, target)
	s.logger.Info(ctx, "Specification status changed",
		"specification_id", id,
		"from", from,
		"to", target,
	)

	return spec, nil
}

// publishReady notifies workers that spec can be picked up. It runs only
// after the state it announces has been persisted.
func (s *Service) publishReady(ctx context.Context, spec *domain.Specification) error {
	evt, err := domain.NewSpecificationCreatedEvent(spec)
	if err != nil {
		s.metrics.IncUndeliveredEvents(ctx)
		s.logger.Error(ctx, "Specification persisted but event could not be built",
			"specification_id", spec.ID(),
			"status", spec.Status(),
			"error", err,
		)
		return fmt.Errorf("specification %d persisted but event could not be built: %w: %w", spec.ID(), domain.ErrPublishFailed, err)
	}

	start := time.Now()
	err = s.publisher.PublishSpecificationCreated(ctx, evt)
	s.metrics.ObservePublishDuration(ctx, time.Since(start))
	if err != nil {
		s.metrics.IncUndeliveredEvents(ctx)
		s.logger.Error(ctx, "Specification persisted but event not delivered",
			"specification_id", spec.ID(),
			"status", spec.Status(),
			"error", err,
		)
		return fmt.Errorf("specification %d persisted but event not delivered: %w: %w", spec.ID(), domain.ErrPublishFailed, err)
	}

	trace.SpanFromContext(ctx).AddEvent("specification_event_published")
	return nil
}
