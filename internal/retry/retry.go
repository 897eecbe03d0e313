// Package retry provides a retry helper with exponential backoff for
// outbound API calls.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 10s)
}

// Do executes fn with retry logic and returns its result or the last error
// once all attempts are exhausted. Non-retryable errors fail immediately.
// Context cancellation is honored between attempts and during backoff.
func Do[T any](ctx context.Context, fn func() (T, error), cfg Config) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoffFor(attempt, cfg.InitialBackoff, cfg.MaxBackoff)):
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable classifies an error by its message. Timeouts, rate limits,
// network hiccups and 5xx responses are retryable; auth errors, bad
// requests and explicit cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())

	nonRetryable := []string{
		"401",
		"403",
		"400",
		"404",
		"context canceled",
	}
	for _, pattern := range nonRetryable {
		if strings.Contains(message, pattern) {
			return false
		}
	}

	retryable := []string{
		"context deadline exceeded",
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"429",
		"too many requests",
		"rate limit",
		"500",
		"502",
		"503",
		"504",
		"connection",
		"network",
	}
	for _, pattern := range retryable {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

// backoffFor returns 2^attempt * initial, capped at max.
func backoffFor(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
