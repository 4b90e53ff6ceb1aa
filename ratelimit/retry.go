package ratelimit

import (
	"sync"
	"time"

	"github.com/wyrmwatch/sentinel/errs"
)

// OpKey identifies the counter scope a RetryHandler tracks attempts under.
type OpKey struct {
	Stage string
	Node  string
}

// RetryHandler holds a backoff policy, a maxRetries cap, and a per-op retry
// counter. ShouldRetry consults the error's kind and the counter together;
// NextDelay reads the policy without advancing state.
type RetryHandler struct {
	mu         sync.Mutex
	policy     Policy
	maxRetries int
	retries    map[OpKey]int
}

// NewRetryHandler returns a RetryHandler bounded to maxRetries attempts per
// op key.
func NewRetryHandler(policy Policy, maxRetries int) *RetryHandler {
	return &RetryHandler{policy: policy, maxRetries: maxRetries, retries: make(map[OpKey]int)}
}

// ShouldRetry reports whether err is retryable under op's current count,
// and if so records the attempt and returns the delay to wait before
// reissuing the call. Once the op exceeds maxRetries it returns false along
// with an *errs.Error of kind Budget.
func (r *RetryHandler) ShouldRetry(op OpKey, err error) (bool, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !errs.Retryable(err) {
		return false, 0, err
	}

	n := r.retries[op]
	if n >= r.maxRetries {
		return false, 0, errs.New(errs.Budget, "retries exhausted for %s/%s", op.Stage, op.Node)
	}

	delay := r.policy.Delay(n)
	r.retries[op] = n + 1
	return true, delay, nil
}

// Reset clears op's retry counter, for use once a call finally succeeds.
func (r *RetryHandler) Reset(op OpKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.retries, op)
}

// Count returns the number of attempts recorded for op.
func (r *RetryHandler) Count(op OpKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retries[op]
}
