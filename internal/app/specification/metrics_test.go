package specification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"

	domain "github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestServiceMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	repo, pub := new(mockRepository), new(mockPublisher)
	svc := NewService(repo, new(mockCatalog), pub, metrics, logger.Noop(), noop.NewTracerProvider().Tracer("test"))
	ctx := context.Background()

	repo.On("CreateSpecification", mock.Anything, mock.Anything).Return(nil).Once()
	pub.On("PublishSpecificationCreated", mock.Anything, mock.Anything).Return(nil).Once()
	_, err = svc.CreateSpecification(ctx, invoiceCommand())
	require.NoError(t, err)

	repo.On("GetSpecification", mock.Anything, int64(10)).Return(storedSpec(t, domain.StatusCreated), nil).Twice()
	repo.On("UpdateStatus", mock.Anything, int64(10), domain.StatusCreated, domain.StatusProcessing).Return(nil).Once()
	_, err = svc.TransitionStatus(ctx, 10, domain.StatusProcessing)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, 10, domain.StatusPlanned)
	require.Error(t, err)

	assert.Equal(t, int64(1), counterValue(t, reader, "specifications_created_total"))
	assert.Equal(t, int64(1), counterValue(t, reader, "status_transitions_total"))
	assert.Equal(t, int64(1), counterValue(t, reader, "invalid_transitions_total"))
	assert.Equal(t, int64(0), counterValue(t, reader, "undelivered_events_total"))
}
