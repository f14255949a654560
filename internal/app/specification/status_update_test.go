package specification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/errs"
)

func TestHandleStatusUpdate_AppliesTransition(t *testing.T) {
	svc, repo, _, pub := setupServiceTest(t)

	repo.On("GetSpecification", mock.Anything, int64(10)).Return(storedSpec(t, domain.StatusProcessing), nil).Once()
	repo.On("UpdateStatus", mock.Anything, int64(10), domain.StatusProcessing, domain.StatusPlanning).Return(nil).Once()

	err := svc.HandleStatusUpdate(context.Background(), []byte(`{"specificationId": 10, "status": "planning"}`))
	require.NoError(t, err)

	repo.AssertExpectations(t)
	pub.AssertNotCalled(t, "PublishSpecificationCreated", mock.Anything, mock.Anything)
}

func TestHandleStatusUpdate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `status=PLANNING`},
		{name: "missing id", body: `{"status": "PLANNING"}`},
		{name: "negative id", body: `{"specificationId": -3, "status": "PLANNING"}`},
		{name: "missing status", body: `{"specificationId": 10}`},
		{name: "unknown status", body: `{"specificationId": 10, "status": "DONE"}`},
		{name: "approval decision", body: `{"specificationId": 10, "status": "APPROVED"}`},
		{name: "rejection decision", body: `{"specificationId": 10, "status": "REJECTED"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := setupServiceTest(t)

			err := svc.HandleStatusUpdate(context.Background(), []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedStatusUpdate)
			assert.True(t, errs.IsBusiness(err))
			assert.False(t, errs.IsRetryable(err))
			repo.AssertNotCalled(t, "GetSpecification", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleStatusUpdate_GuardRejection(t *testing.T) {
	svc, repo, _, _ := setupServiceTest(t)

	repo.On("GetSpecification", mock.Anything, int64(10)).Return(storedSpec(t, domain.StatusCreated), nil).Once()

	err := svc.HandleStatusUpdate(context.Background(), []byte(`{"specificationId": 10, "status": "TESTS_GENERATED"}`))
	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
	assert.False(t, errs.IsRetryable(err))
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleStatusUpdate_ConflictIsRetryable(t *testing.T) {
	svc, repo, _, _ := setupServiceTest(t)

	repo.On("GetSpecification", mock.Anything, int64(10)).Return(storedSpec(t, domain.StatusProcessing), nil).Once()
	repo.On("UpdateStatus", mock.Anything, int64(10), domain.StatusProcessing, domain.StatusError).
		Return(domain.ErrStatusConflict).Once()

	err := svc.HandleStatusUpdate(context.Background(), []byte(`{"specificationId": 10, "status": "ERROR"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
	assert.True(t, errs.IsRetryable(err))
}
