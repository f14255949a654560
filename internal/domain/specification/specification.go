// Package specification models an API test specification and the lifecycle it
// moves through while AI agents plan it, humans approve it and test code is
// generated from it.
package specification

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aegis-tests/orchestrator/internal/errs"
)

// APICall is the subset of a cataloged endpoint a specification can link to.
type APICall struct {
	ID             int64
	Name           string
	Method         string
	Path           string
	RequestExample string
}

// NewParams carries everything needed to create a specification.
type NewParams struct {
	TestProjectID           int64
	Title                   string
	Description             string
	InputType               InputType
	Method                  string
	Path                    string
	TestObjective           string
	RequestExample          string
	RequiresAuth            bool
	ApproveBeforeGeneration bool
	AuthProfileID           *int64
	APICallID               *int64
	// APICall is the catalog entry resolved for APICallID. When set, its
	// method and path win over Method and Path.
	APICall   *APICall
	TagIDs    []int64
	CreatedBy string
}

// Specification is the functional source of truth for AI-driven test
// generation against one API endpoint.
type Specification struct {
	id                      int64
	testProjectID           int64
	title                   string
	description             string
	inputType               InputType
	method                  string
	path                    string
	testObjective           string
	requestExample          string
	requiresAuth            bool
	approveBeforeGeneration bool
	authProfileID           *int64
	apiCall                 *APICall
	apiCallID               *int64
	tagIDs                  []int64
	status                  Status
	createdBy               string
	timeline                *Timeline
}

// NewSpecification validates p and builds a specification in its initial
// status: WAITING_APPROVAL when approval is required before generation,
// CREATED otherwise.
func NewSpecification(p NewParams, tp TimeProvider) (*Specification, error) {
	if err := validateParams(&p); err != nil {
		return nil, err
	}

	method, path, example := p.Method, p.Path, p.RequestExample
	if p.InputType == InputTypeAPICall && p.APICall != nil {
		method, path = p.APICall.Method, p.APICall.Path
		if example == "" {
			example = p.APICall.RequestExample
		}
	}
	if example != "" && !json.Valid([]byte(example)) {
		return nil, errs.NewBusiness(errs.CodeInvalidFormat, "requestExample", "requestExample must be valid JSON")
	}

	status := StatusCreated
	if p.ApproveBeforeGeneration {
		status = StatusWaitingApproval
	}

	return &Specification{
		testProjectID:           p.TestProjectID,
		title:                   strings.TrimSpace(p.Title),
		description:             p.Description,
		inputType:               p.InputType,
		method:                  strings.ToUpper(strings.TrimSpace(method)),
		path:                    strings.TrimSpace(path),
		testObjective:           p.TestObjective,
		requestExample:          example,
		requiresAuth:            p.RequiresAuth,
		approveBeforeGeneration: p.ApproveBeforeGeneration,
		authProfileID:           p.AuthProfileID,
		apiCall:                 p.APICall,
		apiCallID:               p.APICallID,
		tagIDs:                  copyIDs(p.TagIDs),
		status:                  status,
		createdBy:               p.CreatedBy,
		timeline:                NewTimeline(tp),
	}, nil
}

func validateParams(p *NewParams) error {
	if strings.TrimSpace(p.Title) == "" {
		return errs.NewBusiness(errs.CodeRequiredField, "title", "title is required")
	}
	if !p.InputType.IsValid() {
		return errs.NewBusiness(errs.CodeInvalidFormat, "inputType", "inputType must be MANUAL or API_CALL")
	}

	switch p.InputType {
	case InputTypeManual:
		if strings.TrimSpace(p.Method) == "" {
			return errs.NewBusiness(errs.CodeRequiredField, "method", "method is required when inputType is MANUAL")
		}
		if strings.TrimSpace(p.Path) == "" {
			return errs.NewBusiness(errs.CodeRequiredField, "path", "path is required when inputType is MANUAL")
		}
	case InputTypeAPICall:
		if p.APICallID == nil {
			return errs.NewBusiness(errs.CodeRequiredField, "apiCallId", "apiCallId is required when inputType is API_CALL")
		}
		if p.APICall != nil && p.APICall.ID != *p.APICallID {
			return errs.NewBusiness(errs.CodeInvalidFormat, "apiCallId", "resolved api call does not match apiCallId")
		}
	}

	if p.RequiresAuth && p.AuthProfileID == nil {
		return errs.NewBusiness(errs.CodeRequiredField, "authProfileId", "authProfileId is required when requiresAuth is true")
	}
	return nil
}

// ReconstructParams carries stored fields for ReconstructSpecification.
type ReconstructParams struct {
	ID                      int64
	TestProjectID           int64
	Title                   string
	Description             string
	InputType               InputType
	Method                  string
	Path                    string
	TestObjective           string
	RequestExample          string
	RequiresAuth            bool
	ApproveBeforeGeneration bool
	AuthProfileID           *int64
	APICallID               *int64
	APICall                 *APICall
	TagIDs                  []int64
	Status                  Status
	CreatedBy               string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ReconstructSpecification creates a Specification from stored fields,
// bypassing creation invariants. Only repositories should use it.
func ReconstructSpecification(p ReconstructParams) *Specification {
	return &Specification{
		id:                      p.ID,
		testProjectID:           p.TestProjectID,
		title:                   p.Title,
		description:             p.Description,
		inputType:               p.InputType,
		method:                  p.Method,
		path:                    p.Path,
		testObjective:           p.TestObjective,
		requestExample:          p.RequestExample,
		requiresAuth:            p.RequiresAuth,
		approveBeforeGeneration: p.ApproveBeforeGeneration,
		authProfileID:           p.AuthProfileID,
		apiCallID:               p.APICallID,
		apiCall:                 p.APICall,
		tagIDs:                  copyIDs(p.TagIDs),
		status:                  p.Status,
		createdBy:               p.CreatedBy,
		timeline:                ReconstructTimeline(p.CreatedAt, p.UpdatedAt, nil),
	}
}

// AssignID sets the identifier handed out by storage. It can only be called
// once.
func (s *Specification) AssignID(id int64) error {
	if s.id != 0 {
		return errs.NewInternal(errs.CodeInternal, "specification id already assigned", nil)
	}
	if id <= 0 {
		return errs.NewInternal(errs.CodeInternal, "specification id must be positive", nil)
	}
	s.id = id
	return nil
}

func (s *Specification) ID() int64                     { return s.id }
func (s *Specification) TestProjectID() int64          { return s.testProjectID }
func (s *Specification) Title() string                 { return s.title }
func (s *Specification) Description() string           { return s.description }
func (s *Specification) InputType() InputType          { return s.inputType }
func (s *Specification) Method() string                { return s.method }
func (s *Specification) Path() string                  { return s.path }
func (s *Specification) TestObjective() string         { return s.testObjective }
func (s *Specification) RequestExample() string        { return s.requestExample }
func (s *Specification) RequiresAuth() bool            { return s.requiresAuth }
func (s *Specification) ApproveBeforeGeneration() bool { return s.approveBeforeGeneration }
func (s *Specification) AuthProfileID() *int64         { return s.authProfileID }
func (s *Specification) APICallID() *int64             { return s.apiCallID }
func (s *Specification) APICall() *APICall             { return s.apiCall }
func (s *Specification) TagIDs() []int64               { return copyIDs(s.tagIDs) }
func (s *Specification) Status() Status                { return s.status }
func (s *Specification) CreatedBy() string             { return s.createdBy }
func (s *Specification) CreatedAt() time.Time          { return s.timeline.CreatedAt() }
func (s *Specification) UpdatedAt() time.Time          { return s.timeline.UpdatedAt() }

// RequiresApproval reports whether a human must approve the plan before
// generation may start.
func (s *Specification) RequiresApproval() bool { return s.approveBeforeGeneration }

// UpdateStatus changes the specification's status after validating the
// transition. The receiver is left untouched when the guard rejects the move.
func (s *Specification) UpdateStatus(newStatus Status) error {
	if err := ValidateTransition(s.status, newStatus); err != nil {
		return err
	}
	s.status = newStatus
	s.timeline.Touch()
	return nil
}

// IsInvalidTransition reports whether err came from the transition guard.
func IsInvalidTransition(err error) bool {
	var target *InvalidStatusTransitionError
	return errors.As(err, &target)
}

func copyIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
