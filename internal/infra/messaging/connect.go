package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/aegis-tests/orchestrator/pkg/common/logger"
)

// DefaultConnectMaxElapsed bounds how long a transport keeps retrying its
// initial connection.
const DefaultConnectMaxElapsed = 5 * time.Minute

// ConnectWithRetry calls connect with exponential backoff until it succeeds,
// ctx is done or maxElapsed passes. It is meant for startup only; publishing
// itself never retries.
func ConnectWithRetry[T any](
	ctx context.Context,
	log *logger.Logger,
	target string,
	maxElapsed time.Duration,
	connect func(ctx context.Context) (T, error),
) (T, error) {
	var conn T

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Second
	expBackoff.MaxElapsedTime = maxElapsed
	if maxElapsed <= 0 {
		expBackoff.MaxElapsedTime = DefaultConnectMaxElapsed
	}

	operation := func() error {
		var err error
		conn, err = connect(ctx)
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn(ctx, "connection attempt failed, retrying", "target", target, "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(expBackoff, ctx), notify); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to connect to %s after retries: %w", target, err)
	}

	return conn, nil
}
