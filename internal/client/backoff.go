package client

import "time"

// BackoffPolicy bounds the automatic reconnect loop: delays double from
// MinDelay up to MaxDelay, and the loop gives up after MaxAttempts.
type BackoffPolicy struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff matches the usual interactive-client tradeoff: quick first
// retry, half-minute ceiling, give up after ten attempts.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MinDelay:    time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 10,
	}
}

// Delay returns the wait before the given 1-based attempt, doubling from
// MinDelay and clamped at MaxDelay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.MinDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
