package retry

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// ErrorChecker determines if an error should trigger a retry
type ErrorChecker func(err error) bool

// Options configures retry behavior
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       zerolog.Logger
	Operation    string
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retries
// are exhausted. The last error is returned when retries run out.
func Do[T any](ctx context.Context, opts Options, fn func(attempt int) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		// Add delay before retry (but not on first attempt)
		if attempt > 0 {
			delay := opts.Config.calculateDelay(attempt - 1)
			opts.Logger.Debug().
				Str("operation", opts.Operation).
				Int("attempt", attempt+1).
				Int("max_attempts", opts.Config.MaxRetries+1).
				Dur("delay", delay).
				Msg("retrying")

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				opts.Logger.Info().
					Str("operation", opts.Operation).
					Int("attempt", attempt+1).
					Msg("succeeded after retry")
			}
			return result, nil
		}

		retryable := opts.ErrorChecker != nil && opts.ErrorChecker(err)
		if !retryable || attempt >= opts.Config.MaxRetries {
			return zero, err
		}

		opts.Logger.Warn().
			Err(err).
			Str("operation", opts.Operation).
			Int("attempt", attempt+1).
			Int("max_attempts", opts.Config.MaxRetries+1).
			Msg("retryable error")
	}
}
