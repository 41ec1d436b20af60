package resilience

import (
	"errors"
	"sync"
	"time"
)

// UnavailableError marks a transient upstream failure: throttling, an outage,
// a gateway timeout. Only these errors trip the circuit breaker; business
// outcomes such as "voucher not found" travel as payloads, not errors.
type UnavailableError struct {
	Service string
	Message string
}

func (e UnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "service unavailable"
}

// IsUnavailable returns true when the error chain contains an UnavailableError.
func IsUnavailable(err error) bool {
	var ue UnavailableError
	return errors.As(err, &ue)
}

// CircuitBreaker blocks requests after repeated unavailable responses.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openUntil time.Time
	cooldown  time.Duration
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

func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !time.Now().Before(c.openUntil)
}

func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.openUntil = time.Time{}
	c.mu.Unlock()
}

func (c *CircuitBreaker) OnError(err error) {
	if !IsUnavailable(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openUntil = time.Now().Add(c.cooldown)
	}
}
