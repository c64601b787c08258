package resilience

import (
	"errors"
	"sync"
	"time"
)

// RateLimitError represents a model-server rate limit response.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limit"
}

// IsRateLimit returns true when the error is a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// CircuitBreaker blocks model calls after repeated rate limit responses.
// While open, every call is refused until the cooldown passes; then exactly
// one probe call is let through (half-open). A successful probe closes the
// circuit, a rate-limited probe re-opens it for another cooldown.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	cooldown  time.Duration
	open      bool
	probing   bool
	openedAt  time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed now. The first call after the
// cooldown becomes the probe; concurrent callers stay blocked until the probe
// resolves.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return true
	}
	if time.Since(c.openedAt) < c.cooldown {
		return false
	}
	if c.probing {
		return false
	}
	c.probing = true
	return true
}

func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.open = false
	c.probing = false
	c.mu.Unlock()
}

// OnError only counts rate limit responses; other failures say nothing about
// whether the server wants us to back off.
func (c *CircuitBreaker) OnError(err error) {
	if !IsRateLimit(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.probing {
		c.probing = false
		c.openedAt = time.Now()
		return
	}
	if c.failures >= c.threshold {
		c.open = true
		c.openedAt = time.Now()
	}
}

// State reports the breaker position for diagnostics.
func (c *CircuitBreaker) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.open:
		return StateClosed
	case c.probing || time.Since(c.openedAt) >= c.cooldown:
		return StateHalfOpen
	default:
		return StateOpen
	}
}
