package specification

import "strings"

// Status represents where a specification is in its lifecycle, from creation
// through AI planning, human approval and test generation.
type Status string

const (
	// StatusUnspecified is the zero value and never a valid lifecycle state.
	StatusUnspecified Status = ""

	// StatusCreated indicates the specification was just created and persisted.
	StatusCreated Status = "CREATED"

	// StatusProcessing indicates an AI agent picked the specification up.
	StatusProcessing Status = "PROCESSING"

	// StatusPlanning indicates the agent is planning test scenarios.
	StatusPlanning Status = "PLANNING"

	// StatusPlanned indicates the test scenarios are defined.
	StatusPlanned Status = "PLANNED"

	// StatusWaitingApproval indicates the plan awaits a human decision.
	StatusWaitingApproval Status = "WAITING_APPROVAL"

	// StatusApproved indicates the plan was approved unchanged.
	StatusApproved Status = "APPROVED"

	// StatusApprovedWithEdits indicates the plan was approved after edits.
	StatusApprovedWithEdits Status = "APPROVED_WITH_EDITS"

	// StatusRejected indicates the plan was rejected and needs replanning.
	StatusRejected Status = "REJECTED"

	// StatusGeneratingTests indicates test code is being generated.
	StatusGeneratingTests Status = "GENERATING_TESTS"

	// StatusValidatingTests indicates generated tests are being run.
	StatusValidatingTests Status = "VALIDATING_TESTS"

	// StatusTestsGenerated indicates tests were generated and validated.
	StatusTestsGenerated Status = "TESTS_GENERATED"

	// StatusError indicates a failure in any phase.
	StatusError Status = "ERROR"
)

func (s Status) String() string { return string(s) }

// allStatuses lists every lifecycle state in declaration order.
var allStatuses = []Status{
	StatusCreated,
	StatusProcessing,
	StatusPlanning,
	StatusPlanned,
	StatusWaitingApproval,
	StatusApproved,
	StatusApprovedWithEdits,
	StatusRejected,
	StatusGeneratingTests,
	StatusValidatingTests,
	StatusTestsGenerated,
	StatusError,
}

// AllStatuses returns every lifecycle state in declaration order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string to a Status. Unknown values map to
// StatusUnspecified.
func ParseStatus(s string) Status {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; ok {
		return st
	}
	return StatusUnspecified
}

// transitions is the authoritative lifecycle table: current status -> the set
// of statuses it may move to. Every status except ERROR may fault into ERROR,
// and ERROR only leaves through PROCESSING.
var transitions = map[Status][]Status{
	StatusCreated:           {StatusProcessing, StatusError},
	StatusProcessing:        {StatusPlanning, StatusGeneratingTests, StatusError},
	StatusPlanning:          {StatusPlanned, StatusError},
	StatusPlanned:           {StatusWaitingApproval, StatusError},
	StatusWaitingApproval:   {StatusApproved, StatusApprovedWithEdits, StatusRejected, StatusError},
	StatusApproved:          {StatusProcessing, StatusError},
	StatusApprovedWithEdits: {StatusProcessing, StatusError},
	StatusRejected:          {StatusProcessing, StatusError},
	StatusGeneratingTests:   {StatusValidatingTests, StatusError},
	StatusValidatingTests:   {StatusTestsGenerated, StatusGeneratingTests, StatusError},
	StatusTestsGenerated:    {StatusError},
	StatusError:             {StatusProcessing},
}

// IsValidTransition reports whether the lifecycle allows moving from one
// status to another. It is false whenever either side is unspecified.
func IsValidTransition(from, to Status) bool {
	if from == StatusUnspecified || to == StatusUnspecified {
		return false
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitionsFrom returns the statuses reachable in one step from the
// given status. The result is never nil; an empty slice means no transitions.
// Callers own the returned slice.
func AllowedTransitionsFrom(from Status) []Status {
	allowed := transitions[from]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// ValidateTransition is the guard business logic must call before persisting
// a status change. It returns an *InvalidStatusTransitionError when the table
// does not allow the move.
func ValidateTransition(from, to Status) error {
	if !IsValidTransition(from, to) {
		return newInvalidStatusTransitionError(from, to)
	}
	return nil
}

// ValidateTransition checks if the receiver can move to target.
func (s Status) ValidateTransition(target Status) error { return ValidateTransition(s, target) }
