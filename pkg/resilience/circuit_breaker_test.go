package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	limit := RateLimitError{Provider: "ollama"}

	cb.OnError(limit)
	if !cb.Allow() || cb.State() != StateClosed {
		t.Fatalf("breaker tripped below threshold, state %s", cb.State())
	}
	cb.OnError(limit)
	if cb.Allow() || cb.State() != StateOpen {
		t.Fatalf("breaker must open at threshold, state %s", cb.State())
	}
}

func TestBreakerIgnoresOtherErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(errors.New("connection refused"))
	if !cb.Allow() {
		t.Fatal("non rate-limit errors must not trip the breaker")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.OnError(RateLimitError{})
	if cb.Allow() {
		t.Fatal("expected open breaker to refuse calls")
	}

	time.Sleep(15 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half_open after cooldown, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected a single probe call after cooldown")
	}
	if cb.Allow() {
		t.Fatal("second caller must wait for the probe to resolve")
	}

	cb.OnSuccess()
	if cb.State() != StateClosed || !cb.Allow() {
		t.Fatalf("successful probe must close the circuit, state %s", cb.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.OnError(RateLimitError{})
	time.Sleep(15 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected probe call")
	}
	cb.OnError(RateLimitError{})
	if cb.Allow() || cb.State() != StateOpen {
		t.Fatalf("failed probe must re-open the circuit, state %s", cb.State())
	}
}

func TestIsRateLimit(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), RateLimitError{Message: "429"})
	if !IsRateLimit(wrapped) {
		t.Fatal("wrapped rate limit not detected")
	}
	if IsRateLimit(errors.New("plain")) {
		t.Fatal("plain error misclassified")
	}
}
