package crawler

import (
	"context"
	"errors"
	"time"
)

// FixedWaitPolicy retries blocked and transient failures after a fixed wait,
// never beyond the configured total attempt budget.
type FixedWaitPolicy struct {
	maxAttempts int
	retryWait   time.Duration
}

// NewFixedWaitPolicy builds a policy with maxAttempts total attempts and a
// fixed wait between them.
func NewFixedWaitPolicy(maxAttempts int, retryWait time.Duration) *FixedWaitPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedWaitPolicy{maxAttempts: maxAttempts, retryWait: retryWait}
}

// ShouldRetry reports whether the attempt-th try (1-based) earned another
// one. Only fetch errors are retryable; context cancellation never is.
func (p *FixedWaitPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindBlocked || fe.Kind == KindNetwork
	}
	return true
}

// Wait returns the fixed wait regardless of attempt number.
func (p *FixedWaitPolicy) Wait(int) time.Duration {
	return p.retryWait
}
