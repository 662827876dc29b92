package util

import (
	"context"
	"fmt"
	"time"
)

// retryMaxBackoff caps the delay between attempts so a long retry chain
// against the kline endpoint does not stall a whole gathering pass.
const retryMaxBackoff = 30 * time.Second

// Retry runs fn until it succeeds, making up to maxAttempts tries. Attempts
// are spaced by an exponential backoff starting at baseDelay and capped at
// retryMaxBackoff. A cancelled ctx aborts both the waits and any attempt
// not yet started. When every attempt fails, the final error is returned
// annotated with the attempt count.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > retryMaxBackoff {
			backoff = retryMaxBackoff
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}
