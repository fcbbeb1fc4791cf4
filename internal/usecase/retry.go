package usecase

import (
	"errors"
	"time"

	"vehicle-inspection-platform/internal/domain/ports/adapter"
)

// RetryPolicy decides whether a failed analysis call is worth repeating and
// how long to wait before the next attempt. It is pure: no state beyond the
// configured knobs.
type RetryPolicy struct {
	BaseDelay  time.Duration
	CapDelay   time.Duration
	MaxRetries int // additional attempts after the first
}

// DefaultRetryPolicy matches the production knobs: 1s base, 30s cap,
// 3 retries (4 total attempts).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  time.Second,
		CapDelay:   30 * time.Second,
		MaxRetries: 3,
	}
}

// Delay computes the backoff before attempt+1: min(base * 2^attempt, cap).
// Deterministic, no jitter; a single job drives a single downstream call.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.CapDelay {
			return p.CapDelay
		}
	}
	if d > p.CapDelay {
		return p.CapDelay
	}
	return d
}

// ShouldRetry reports whether the error class is transient and the retry
// budget still allows another attempt. attempt is 0-based: attempt 0 is the
// first failure.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	var ae *adapter.AnalysisError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	// Unclassified errors are treated as structural: retrying an unknown
	// failure burns the budget without evidence it can succeed.
	return false
}
