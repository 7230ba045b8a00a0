// Package retry runs an operation again with exponential backoff while its
// errors are transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
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

// Retryable is implemented by errors that know whether they are transient.
type Retryable interface {
	IsRetryable() bool
}

// Delayed is implemented by errors that carry a server-requested wait.
type Delayed interface {
	RetryAfter() time.Duration
}

// permanentError stops Do regardless of what the wrapped error reports.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final so Do returns it without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Context cancellation is checked between attempts.
func Do(ctx context.Context, cfg Config, log *logger.Logger, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Debug("retry succeeded", logger.Field{Key: "attempt", Value: attempt + 1})
			}
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := Backoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		var d Delayed
		if errors.As(err, &d) && d.RetryAfter() > backoff {
			backoff = d.RetryAfter()
		}

		log.Warn("retryable error, backing off",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: cfg.MaxAttempts},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialDelay
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxDelay
	}
	return c
}

// IsRetryable reports whether err is worth another attempt. Errors that
// implement Retryable decide for themselves; otherwise the message is
// matched against known transient network failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errLower := strings.ToLower(err.Error())

	nonRetryable := []string{
		"400",
		"401",
		"403",
		"404",
		"context canceled",
	}
	for _, pattern := range nonRetryable {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	retryable := []string{
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"429",
		"too many requests",
		"rate limit",
		"bad gateway",
		"service unavailable",
		"network",
	}
	for _, pattern := range retryable {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// Backoff returns 2^attempt * initial, capped at max.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt > 30 {
		return max
	}
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max || backoff <= 0 {
		return max
	}
	return backoff
}
