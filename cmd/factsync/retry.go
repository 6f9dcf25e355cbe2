package main

import (
	"context"
	"time"

	"github.com/hyperengineering/factsync"
	"github.com/sethvargo/go-retry"
)

// retryBaseDelay is the first backoff step; later steps double.
var retryBaseDelay = 500 * time.Millisecond

// withRetry runs op, retrying up to retries more times with exponential
// backoff while it fails with a retryable remote error.
func withRetry(ctx context.Context, retries int, op func(ctx context.Context) error) error {
	if retries <= 0 {
		return op(ctx)
	}

	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if factsync.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
