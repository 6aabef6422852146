package resilience

import (
	"sync"
	"time"
)

// UnlimitedAttempts configures a ReconnectPolicy that never stops retrying.
const UnlimitedAttempts = -1

// ReconnectPolicy generates the backoff sequence for transport
// reconnection. It is distinct from the retry policy, which governs
// individual request attempts.
type ReconnectPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	exponential bool
	jitterOn    bool

	mutex    sync.Mutex
	attempts int
}

// NewReconnectPolicy returns a policy with explicit parameters. Pass
// UnlimitedAttempts as maxAttempts for unbounded reconnection.
func NewReconnectPolicy(
	maxAttempts int,
	baseDelay, maxDelay time.Duration,
	exponential, jitter bool,
) *ReconnectPolicy {
	return &ReconnectPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		exponential: exponential,
		jitterOn:    jitter,
	}
}

// DefaultReconnect retries five times with jittered exponential backoff
// from one second up to thirty seconds.
func DefaultReconnect() *ReconnectPolicy {
	return NewReconnectPolicy(5, time.Second, 30*time.Second, true, true)
}

// UnlimitedReconnect never gives up.
func UnlimitedReconnect() *ReconnectPolicy {
	return NewReconnectPolicy(UnlimitedAttempts, time.Second, 30*time.Second, true, true)
}

// NoReconnect never retries.
func NoReconnect() *ReconnectPolicy {
	return NewReconnectPolicy(0, 0, 0, false, false)
}

// ShouldRetry reports whether another reconnection attempt is permitted.
func (p *ReconnectPolicy) ShouldRetry() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.maxAttempts == UnlimitedAttempts || p.attempts < p.maxAttempts
}

// ConsumeDelay returns the delay to wait before the next reconnection
// attempt and advances the attempt counter. Every call consumes one
// attempt; the delay cannot be queried without advancing the sequence.
func (p *ReconnectPolicy) ConsumeDelay() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	delay := backoff(p.exponential, p.baseDelay, p.maxDelay, p.attempts)
	p.attempts++

	if p.jitterOn {
		delay = jitter(delay)
	}

	return delay
}

// Reset zeroes the attempt counter. Call it after a successful reconnect.
func (p *ReconnectPolicy) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.attempts = 0
}

// Attempts returns the number of delays consumed since the last reset.
func (p *ReconnectPolicy) Attempts() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.attempts
}
