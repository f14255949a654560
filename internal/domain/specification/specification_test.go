package specification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-tests/orchestrator/internal/errs"
)

type fixedTimeProvider struct{ now time.Time }

func (p *fixedTimeProvider) Now() time.Time { return p.now }

func int64Ptr(v int64) *int64 { return &v }

func manualParams() NewParams {
	return NewParams{
		TestProjectID:  7,
		Title:          "Create invoice",
		Description:    "Creates an invoice for a customer",
		InputType:      InputTypeManual,
		Method:         "post",
		Path:           "/api/v1/invoices",
		TestObjective:  "Happy path and validation errors",
		RequestExample: `{"amount": 10}`,
		TagIDs:         []int64{3, 1},
		CreatedBy:      "qa@example.com",
	}
}

func TestNewSpecification_InitialStatus(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		want    Status
	}{
		{name: "no approval starts created", approve: false, want: StatusCreated},
		{name: "approval starts waiting approval", approve: true, want: StatusWaitingApproval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := manualParams()
			p.ApproveBeforeGeneration = tt.approve

			spec, err := NewSpecification(p, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Status())
			assert.Equal(t, tt.approve, spec.RequiresApproval())
		})
	}
}

func TestNewSpecification_NormalizesFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	spec, err := NewSpecification(manualParams(), &fixedTimeProvider{now: now})
	require.NoError(t, err)

	assert.Equal(t, "POST", spec.Method())
	assert.Equal(t, "/api/v1/invoices", spec.Path())
	assert.Equal(t, []int64{3, 1}, spec.TagIDs())
	assert.Equal(t, now, spec.CreatedAt())
	assert.Equal(t, now, spec.UpdatedAt())
	assert.Zero(t, spec.ID())
}

func TestNewSpecification_APICallInput(t *testing.T) {
	call := &APICall{ID: 42, Name: "List users", Method: "GET", Path: "/users", RequestExample: `{}`}
	p := NewParams{
		Title:     "List users",
		InputType: InputTypeAPICall,
		APICallID: int64Ptr(42),
		APICall:   call,
	}

	spec, err := NewSpecification(p, nil)
	require.NoError(t, err)
	assert.Equal(t, "GET", spec.Method())
	assert.Equal(t, "/users", spec.Path())
	assert.Equal(t, `{}`, spec.RequestExample())
	assert.Equal(t, call, spec.APICall())
}

func TestNewSpecification_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *NewParams)
		code   errs.Code
		field  string
	}{
		{
			name:   "missing title",
			mutate: func(p *NewParams) { p.Title = "  " },
			code:   errs.CodeRequiredField,
			field:  "title",
		},
		{
			name:   "unknown input type",
			mutate: func(p *NewParams) { p.InputType = "FILE" },
			code:   errs.CodeInvalidFormat,
			field:  "inputType",
		},
		{
			name:   "manual without method",
			mutate: func(p *NewParams) { p.Method = "" },
			code:   errs.CodeRequiredField,
			field:  "method",
		},
		{
			name:   "manual without path",
			mutate: func(p *NewParams) { p.Path = "" },
			code:   errs.CodeRequiredField,
			field:  "path",
		},
		{
			name: "api call without id",
			mutate: func(p *NewParams) {
				p.InputType = InputTypeAPICall
				p.APICallID = nil
			},
			code:  errs.CodeRequiredField,
			field: "apiCallId",
		},
		{
			name: "api call mismatch",
			mutate: func(p *NewParams) {
				p.InputType = InputTypeAPICall
				p.APICallID = int64Ptr(1)
				p.APICall = &APICall{ID: 2}
			},
			code:  errs.CodeInvalidFormat,
			field: "apiCallId",
		},
		{
			name:   "auth without profile",
			mutate: func(p *NewParams) { p.RequiresAuth = true },
			code:   errs.CodeRequiredField,
			field:  "authProfileId",
		},
		{
			name:   "request example not json",
			mutate: func(p *NewParams) { p.RequestExample = "{amount: " },
			code:   errs.CodeInvalidFormat,
			field:  "requestExample",
		},
		{
			name: "catalog request example not json",
			mutate: func(p *NewParams) {
				p.InputType = InputTypeAPICall
				p.APICallID = int64Ptr(9)
				p.APICall = &APICall{ID: 9, Method: "POST", Path: "/orders", RequestExample: "<order/>"}
				p.RequestExample = ""
			},
			code:  errs.CodeInvalidFormat,
			field: "requestExample",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := manualParams()
			tt.mutate(&p)

			spec, err := NewSpecification(p, nil)
			require.Error(t, err)
			assert.Nil(t, spec)
			assert.True(t, errs.IsBusiness(err))
			assert.Equal(t, tt.code, errs.CodeOf(err))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestSpecification_UpdateStatus(t *testing.T) {
	tp := &fixedTimeProvider{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	spec, err := NewSpecification(manualParams(), tp)
	require.NoError(t, err)

	tp.now = tp.now.Add(time.Minute)
	require.NoError(t, spec.UpdateStatus(StatusProcessing))
	assert.Equal(t, StatusProcessing, spec.Status())
	assert.Equal(t, tp.now, spec.UpdatedAt())
}

func TestSpecification_UpdateStatusRejected(t *testing.T) {
	tp := &fixedTimeProvider{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	spec, err := NewSpecification(manualParams(), tp)
	require.NoError(t, err)
	before := spec.UpdatedAt()

	tp.now = tp.now.Add(time.Minute)
	err = spec.UpdateStatus(StatusTestsGenerated)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
	assert.Equal(t, StatusCreated, spec.Status())
	assert.Equal(t, before, spec.UpdatedAt())
}

func TestSpecification_AssignID(t *testing.T) {
	spec, err := NewSpecification(manualParams(), nil)
	require.NoError(t, err)

	assert.Error(t, spec.AssignID(0))
	require.NoError(t, spec.AssignID(10))
	assert.Equal(t, int64(10), spec.ID())
	assert.Error(t, spec.AssignID(11))
}

func TestSpecification_TagIDsAreCopied(t *testing.T) {
	p := manualParams()
	spec, err := NewSpecification(p, nil)
	require.NoError(t, err)

	p.TagIDs[0] = 99
	tags := spec.TagIDs()
	tags[1] = 100
	assert.Equal(t, []int64{3, 1}, spec.TagIDs())
}

func TestReconstructSpecification(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	spec := ReconstructSpecification(ReconstructParams{
		ID:        5,
		Title:     "Stored",
		InputType: InputTypeManual,
		Status:    StatusError,
		CreatedAt: created,
		UpdatedAt: updated,
	})

	assert.Equal(t, int64(5), spec.ID())
	assert.Equal(t, StatusError, spec.Status())
	assert.Equal(t, created, spec.CreatedAt())
	assert.Equal(t, updated, spec.UpdatedAt())
	assert.NotNil(t, spec.TagIDs())
	assert.NoError(t, spec.UpdateStatus(StatusProcessing))
}
