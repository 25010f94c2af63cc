package fetch

import (
	"context"
	"time"
)

// RetryConfig controls RetryWithBackoff. Retries counts the extra attempts
// after the first one, so Retries=2 means at most three calls.
type RetryConfig struct {
	Retries   int
	BaseDelay time.Duration
}

// DefaultRetryConfig returns 2 retries waiting 500ms then 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:   2,
		BaseDelay: 500 * time.Millisecond,
	}
}

// delay returns the wait before the attempt that follows attempt n (0-based).
func (c RetryConfig) delay(attempt int) time.Duration {
	return c.BaseDelay << attempt
}

// RetryWithBackoff calls fn until it succeeds or Retries+1 attempts have
// failed, waiting BaseDelay*2^attempt between attempts. Every failure is
// retried; the last error is returned. Context cancellation between attempts
// is respected.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		// Don't sleep after the last attempt.
		if attempt == cfg.Retries {
			break
		}

		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
