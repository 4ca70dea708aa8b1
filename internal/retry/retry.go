package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a single-attempt configuration; retries are opt-in.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     1,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// ErrorChecker decides whether an error should trigger another attempt
type ErrorChecker func(err error) bool

// Logger defines a function for logging retry attempts
type Logger func(message string, args ...any)

// Options configures retry behavior
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       Logger
	Op           string
}

func (c Config) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// calculateDelay computes a full-jitter exponential backoff for the given retry number
func (c Config) calculateDelay(retry int) time.Duration {
	multiple := c.BackoffMultiple
	if multiple < 1 {
		multiple = 2.0
	}

	ceiling := time.Duration(float64(c.BaseDelay) * math.Pow(multiple, float64(retry)))
	if c.MaxDelay > 0 && ceiling > c.MaxDelay {
		ceiling = c.MaxDelay
	}
	if ceiling <= 0 {
		return 0
	}

	// half fixed, half random
	half := ceiling / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, opts Options, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	attempts := opts.Config.attempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := opts.Config.calculateDelay(attempt - 1)
			if opts.Logger != nil {
				opts.Logger("retrying after transient failure", "op", opts.Op, "attempt", attempt+1, "max_attempts", attempts, "delay", delay, "error", lastErr)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}

		result, err := fn(attempt)
		if err == nil {
			if attempt > 0 && opts.Logger != nil {
				opts.Logger("request succeeded after retry", "op", opts.Op, "attempt", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if opts.ErrorChecker == nil || !opts.ErrorChecker(err) {
			return zero, err
		}
	}

	return zero, lastErr
}
