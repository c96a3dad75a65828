package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meowbet/core/internal/domain"
)

// CircuitState is the position of one circuit.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

const circuitGuard = "circuit_breaker"

// CircuitBreaker trips per key after consecutive failures. The relay keys it
// by topic so one unreachable topic does not stall the others.
type CircuitBreaker struct {
	mu        sync.RWMutex
	circuits  map[string]*circuit
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

type circuit struct {
	state    CircuitState
	failures int
	openedAt time.Time
	trialing bool
}

// NewCircuitBreaker opens a circuit after threshold consecutive failures and
// lets a single trial request through once cooldown has passed.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (cb *CircuitBreaker) get(key string) *circuit {
	c, ok := cb.circuits[key]
	if !ok {
		c = &circuit{}
		cb.circuits[key] = c
	}
	return c
}

// Check reports whether a call for key may proceed.
func (cb *CircuitBreaker) Check(_ context.Context, key string) domain.GuardResult {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	switch c.state {
	case CircuitOpen:
		wait := cb.cooldown - cb.now().Sub(c.openedAt)
		if wait > 0 {
			return domain.GuardResult{
				Reason: fmt.Sprintf("circuit open for %s, retry in %s", key, wait.Round(time.Millisecond)),
				Guard:  circuitGuard,
			}
		}
		c.state = CircuitHalfOpen
		c.trialing = true
		return domain.GuardResult{Allowed: true}
	case CircuitHalfOpen:
		if c.trialing {
			return domain.GuardResult{Reason: "circuit half-open, trial request in flight", Guard: circuitGuard}
		}
		c.trialing = true
		return domain.GuardResult{Allowed: true}
	}
	return domain.GuardResult{Allowed: true}
}

// RecordSuccess closes the circuit for key.
func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if c, ok := cb.circuits[key]; ok {
		*c = circuit{}
	}
}

// RecordFailure counts a failure for key. A failed half-open trial reopens the
// circuit straight away.
func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	c.failures++
	c.trialing = false
	if c.state == CircuitHalfOpen || c.failures >= cb.threshold {
		c.state = CircuitOpen
		c.openedAt = cb.now()
	}
}

// State returns the current state for key. Unknown keys are closed.
func (cb *CircuitBreaker) State(key string) CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if c, ok := cb.circuits[key]; ok {
		return c.state
	}
	return CircuitClosed
}

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}
