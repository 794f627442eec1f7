package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SleepFunc waits for the given duration or until the context is cancelled.
// Tests inject a fake to avoid real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs fn up to attempts times with a fixed backoff between
// attempts. The last error is returned once attempts are exhausted.
func withRetry(ctx context.Context, logger zerolog.Logger, attempts int, backoff time.Duration, sleep SleepFunc, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		logger.Warn().Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", backoff).
			Msg("fetch attempt failed, retrying after backoff")

		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}

	logger.Error().Err(lastErr).Int("attempts", attempts).Msg("all fetch attempts exhausted")
	return lastErr
}
