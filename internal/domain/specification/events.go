package specification

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aegis-tests/orchestrator/internal/domain/events"
)

var _ events.DomainEvent = SpecificationCreatedEvent{}

var eventValidator = validator.New(validator.WithRequiredStructEnabled())

// SpecificationCreatedEvent announces that a specification is ready for
// test generation. It is a snapshot: later changes to the specification do
// not affect an event already built.
type SpecificationCreatedEvent struct {
	SpecificationID         int64     `json:"specificationId" validate:"gt=0"`
	Title                   string    `json:"title" validate:"required"`
	Description             *string   `json:"description"`
	InputType               InputType `json:"inputType" validate:"oneof=MANUAL API_CALL"`
	Method                  *string   `json:"method"`
	Path                    *string   `json:"path"`
	TestObjective           *string   `json:"testObjective"`
	RequestExample          *string   `json:"requestExample"`
	RequiresAuth            bool      `json:"requiresAuth"`
	ApproveBeforeGeneration bool      `json:"approveBeforeGeneration"`
	AuthProfileID           *int64    `json:"authProfileId"`
	APICallID               *int64    `json:"apiCallId"`
	APICallName             *string   `json:"apiCallName"`
	APICallMethod           *string   `json:"apiCallMethod"`
	APICallPath             *string   `json:"apiCallPath"`
	TagIDs                  []int64   `json:"tagIds"`
	CreatedAt               time.Time `json:"createdAt" validate:"required"`

	occurredAt time.Time
}

// NewSpecificationCreatedEvent snapshots spec into an event. The
// specification must already carry a storage-assigned id.
func NewSpecificationCreatedEvent(spec *Specification) (SpecificationCreatedEvent, error) {
	evt := SpecificationCreatedEvent{
		SpecificationID:         spec.ID(),
		Title:                   spec.Title(),
		Description:             optionalString(spec.Description()),
		InputType:               spec.InputType(),
		Method:                  optionalString(spec.Method()),
		Path:                    optionalString(spec.Path()),
		TestObjective:           optionalString(spec.TestObjective()),
		RequestExample:          optionalString(spec.RequestExample()),
		RequiresAuth:            spec.RequiresAuth(),
		ApproveBeforeGeneration: spec.ApproveBeforeGeneration(),
		AuthProfileID:           copyInt64(spec.AuthProfileID()),
		APICallID:               copyInt64(spec.APICallID()),
		TagIDs:                  spec.TagIDs(),
		CreatedAt:               spec.CreatedAt(),
		occurredAt:              time.Now().UTC(),
	}
	if call := spec.APICall(); call != nil {
		evt.APICallName = optionalString(call.Name)
		evt.APICallMethod = optionalString(call.Method)
		evt.APICallPath = optionalString(call.Path)
	}

	if err := evt.Validate(); err != nil {
		return SpecificationCreatedEvent{}, err
	}
	return evt, nil
}

// Validate checks the event carries the fields every consumer relies on.
func (e SpecificationCreatedEvent) Validate() error {
	if err := eventValidator.Struct(e); err != nil {
		return fmt.Errorf("invalid specification created event: %w", err)
	}
	return nil
}

// MarshalJSON renders a missing tag list as an empty array, never null.
func (e SpecificationCreatedEvent) MarshalJSON() ([]byte, error) {
	type wire SpecificationCreatedEvent
	w := wire(e)
	if w.TagIDs == nil {
		w.TagIDs = []int64{}
	}
	return json.Marshal(w)
}

// EventType returns the type of the event.
func (e SpecificationCreatedEvent) EventType() events.EventType {
	return events.EventTypeSpecificationCreated
}

// OccurredAt returns when the event was built. Zero-value events fall back
// to the specification's creation time.
func (e SpecificationCreatedEvent) OccurredAt() time.Time {
	if e.occurredAt.IsZero() {
		return e.CreatedAt
	}
	return e.occurredAt
}

// Key returns the routing key transports use to keep events for the same
// specification together.
func (e SpecificationCreatedEvent) Key() string {
	return strconv.FormatInt(e.SpecificationID, 10)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
