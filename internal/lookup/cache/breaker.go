package cache

import (
	"sync"
	"time"
)

// circuitBreaker tracks consecutive primary store errors:
// - Open after failureThreshold consecutive failures; while open, reads and
//   writes go to the fallback store.
// - While open, let one probe through to the primary every probeInterval.
// - Close after successThreshold consecutive successful probes.
type circuitBreaker struct {
	mu               sync.Mutex
	state            circuitState
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	probeInterval    time.Duration
	lastProbe        time.Time
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
)

func newCircuitBreaker(failureThreshold, successThreshold int, probeInterval time.Duration) *circuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 3
	}
	return &circuitBreaker{
		state:            circuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		probeInterval:    probeInterval,
	}
}

func (c *circuitBreaker) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == circuitOpen
}

// AllowPrimary reports whether a call may go to the primary store at now.
func (c *circuitBreaker) AllowPrimary(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitClosed {
		return true
	}
	if now.Sub(c.lastProbe) >= c.probeInterval {
		c.lastProbe = now
		return true
	}
	return false
}

// RecordFailure returns true when the circuit is open after the failure.
func (c *circuitBreaker) RecordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.successCount = 0
	if c.state == circuitOpen {
		return true
	}
	if c.failureCount >= c.failureThreshold {
		c.state = circuitOpen
		return true
	}
	return false
}

// RecordSuccess returns true when the circuit is closed after the success.
func (c *circuitBreaker) RecordSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitOpen {
		c.successCount++
		if c.successCount >= c.successThreshold {
			c.state = circuitClosed
			c.failureCount = 0
			c.successCount = 0
			return true
		}
		return false
	}
	c.failureCount = 0
	return true
}
