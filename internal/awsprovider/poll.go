package awsprovider

import (
	"context"
	"time"
)

// pollSettleDelay is the initial sleep before the first readiness attempt,
// giving IAM/SNS eventual consistency a head start before burning attempts.
const pollSettleDelay = 2 * time.Second

// pollAttempts and pollInterval bound how long pollUntilSuccess will retry
// an eventually-consistent operation before giving up with
// ProvisioningTimeout.
const (
	pollAttempts = 100
	pollInterval = 1 * time.Second
)

// pollUntilSuccess sleeps pollSettleDelay, then calls fn up to pollAttempts
// times with pollInterval between attempts, treating any error as
// retryable. It is used for operations racing IAM/SNS propagation: function
// creation against a just-created role, and setting a topic's
// failure-feedback role attribute against a just-created feedback role.
func pollUntilSuccess(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pollSettleDelay):
	}

	var lastErr error
	for attempt := 0; attempt < pollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == pollAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return &ProvisioningTimeout{Step: step, Attempts: pollAttempts, Err: lastErr}
}
