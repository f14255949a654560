package specification

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-tests/orchestrator/internal/errs"
)

func TestIsValidTransition_MatchesTable(t *testing.T) {
	expected := map[Status][]Status{
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

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				want := false
				for _, s := range expected[from] {
					if s == to {
						want = true
					}
				}
				assert.Equal(t, want, IsValidTransition(from, to))
			})
		}
	}
}

func TestAllowedTransitionsFrom_StableOrder(t *testing.T) {
	assert.Equal(t,
		[]Status{StatusApproved, StatusApprovedWithEdits, StatusRejected, StatusError},
		AllowedTransitionsFrom(StatusWaitingApproval),
	)
	assert.Equal(t,
		[]Status{StatusPlanning, StatusGeneratingTests, StatusError},
		AllowedTransitionsFrom(StatusProcessing),
	)
}

func TestAllowedTransitionsFrom_ReturnsCopy(t *testing.T) {
	allowed := AllowedTransitionsFrom(StatusCreated)
	allowed[0] = StatusTestsGenerated

	assert.True(t, IsValidTransition(StatusCreated, StatusProcessing))
	assert.False(t, IsValidTransition(StatusCreated, StatusTestsGenerated))
	assert.Equal(t, []Status{StatusProcessing, StatusError}, AllowedTransitionsFrom(StatusCreated))
}

func TestAllowedTransitionsFrom_Unspecified(t *testing.T) {
	allowed := AllowedTransitionsFrom(StatusUnspecified)
	require.NotNil(t, allowed)
	assert.Empty(t, allowed)

	assert.Empty(t, AllowedTransitionsFrom(Status("BOGUS")))
}

func TestEveryStatusCanFaultIntoError(t *testing.T) {
	for _, s := range AllStatuses() {
		if s == StatusError {
			continue
		}
		assert.True(t, IsValidTransition(s, StatusError), "expected %s -> ERROR to be valid", s)
	}
	assert.False(t, IsValidTransition(StatusError, StatusError))
}

func TestErrorOnlyRecoversThroughProcessing(t *testing.T) {
	for _, to := range AllStatuses() {
		assert.Equal(t, to == StatusProcessing, IsValidTransition(StatusError, to), "ERROR -> %s", to)
	}
}

func TestUnspecifiedIsNeverValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.False(t, IsValidTransition(StatusUnspecified, s))
		assert.False(t, IsValidTransition(s, StatusUnspecified))
	}
	assert.False(t, IsValidTransition(StatusUnspecified, StatusUnspecified))
}

func TestNoStateSkipping(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{name: "Created to Planning", from: StatusCreated, to: StatusPlanning},
		{name: "Created to Tests Generated", from: StatusCreated, to: StatusTestsGenerated},
		{name: "Planning to Waiting Approval", from: StatusPlanning, to: StatusWaitingApproval},
		{name: "Planned to Approved", from: StatusPlanned, to: StatusApproved},
		{name: "Generating Tests to Tests Generated", from: StatusGeneratingTests, to: StatusTestsGenerated},
		{name: "Created to Created", from: StatusCreated, to: StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestTestsGeneratedOnlyFaults(t *testing.T) {
	assert.Equal(t, []Status{StatusError}, AllowedTransitionsFrom(StatusTestsGenerated))
}

func TestValidateTransition_FaultDetails(t *testing.T) {
	err := ValidateTransition(StatusCreated, StatusTestsGenerated)
	require.Error(t, err)

	var transitionErr *InvalidStatusTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, StatusCreated, transitionErr.From)
	assert.Equal(t, StatusTestsGenerated, transitionErr.To)
	assert.Equal(t, []Status{StatusProcessing, StatusError}, transitionErr.Allowed)

	assert.Equal(t, errs.KindInternal, errs.KindOf(err))
	assert.Equal(t, errs.CodeInvalidStatusTransition, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "CREATED -> TESTS_GENERATED")
	assert.Contains(t, err.Error(), "[PROCESSING ERROR]")
	assert.True(t, IsInvalidTransition(err))
}

func TestValidateTransition_UnspecifiedSource(t *testing.T) {
	err := ValidateTransition(StatusUnspecified, StatusProcessing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<unspecified> -> PROCESSING")

	var transitionErr *InvalidStatusTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Empty(t, transitionErr.Allowed)
}

func TestValidateTransition_HappyPath(t *testing.T) {
	path := []Status{
		StatusCreated,
		StatusProcessing,
		StatusPlanning,
		StatusPlanned,
		StatusWaitingApproval,
		StatusApproved,
		StatusProcessing,
		StatusGeneratingTests,
		StatusValidatingTests,
		StatusTestsGenerated,
	}

	for i := 1; i < len(path); i++ {
		assert.NoError(t, path[i-1].ValidateTransition(path[i]), "%s -> %s", path[i-1], path[i])
	}
}

func TestValidateTransition_ValidationRetryLoop(t *testing.T) {
	assert.NoError(t, ValidateTransition(StatusGeneratingTests, StatusValidatingTests))
	assert.NoError(t, ValidateTransition(StatusValidatingTests, StatusGeneratingTests))
	assert.NoError(t, ValidateTransition(StatusGeneratingTests, StatusValidatingTests))
	assert.NoError(t, ValidateTransition(StatusValidatingTests, StatusTestsGenerated))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{in: "CREATED", want: StatusCreated},
		{in: " approved_with_edits ", want: StatusApprovedWithEdits},
		{in: "error", want: StatusError},
		{in: "", want: StatusUnspecified},
		{in: "DONE", want: StatusUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.in))
		})
	}
}

func TestAllStatuses_Complete(t *testing.T) {
	all := AllStatuses()
	assert.Len(t, all, 12)
	for _, s := range all {
		_, ok := transitions[s]
		assert.True(t, ok, "status %s missing from table", s)
	}
}
