// Package resilience provides retry with exponential backoff for calls
// to flaky upstreams (storage gateways, RPC endpoints).
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64
	// Retryable reports whether an error is worth another attempt.
	// Nil retries everything.
	Retryable func(error) bool
}

// DefaultRetryConfig suits short interactive requests.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
	}
}

// Retry runs fn until it succeeds, the error is not retryable, the
// attempts run out, or the context is cancelled.
func Retry(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if config.Retryable != nil && !config.Retryable(lastErr) {
			return lastErr
		}
		if attempt >= config.MaxAttempts {
			break
		}

		delay = nextBackoff(delay, config)
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
}

func nextBackoff(current time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(current) * config.BackoffFactor)
	if next > config.MaxDelay {
		next = config.MaxDelay
	}
	if config.JitterFraction > 0 {
		next += time.Duration(rand.Float64() * config.JitterFraction * float64(next))
	}
	return next
}
