package noop

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

func TestPublisher_SkipsAndNeverFails(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "test", func(context.Context) string { return "" })
	reg := prometheus.NewRegistry()
	metrics := messaging.NewPrometheusMetrics(reg)

	pub := NewPublisher(log, metrics)
	evt := specification.SpecificationCreatedEvent{
		SpecificationID: 10,
		Title:           "Create invoice",
		InputType:       specification.InputTypeManual,
		CreatedAt:       time.Now(),
	}

	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), evt))
	require.NoError(t, pub.PublishSpecificationCreated(context.Background(), evt))

	assert.Contains(t, buf.String(), "Messaging disabled, skipping publish")
	assert.Contains(t, buf.String(), `"specification_id":10`)

	expected := `
# HELP aegis_events_skipped_total Total number of specification events dropped because messaging is disabled
# TYPE aegis_events_skipped_total counter
aegis_events_skipped_total{provider="none"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "aegis_events_skipped_total"))

	published, err := testutil.GatherAndCount(reg, "aegis_events_published_total")
	require.NoError(t, err)
	assert.Zero(t, published)
}

func TestPublisher_CancelledContextStillSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewPublisher(logger.Noop(), nil)
	assert.NoError(t, pub.PublishSpecificationCreated(ctx, specification.SpecificationCreatedEvent{SpecificationID: 1}))
}
