package llm

import (
	"errors"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting the upstream request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker protects the model provider from repeated failures.
// After failureThreshold failures within failureWindow the breaker opens
// and rejects calls until openTimeout passes, then lets probe requests
// through in half-open state. successThreshold consecutive successes
// close it again.
type CircuitBreaker struct {
	mu sync.Mutex

	state        breakerState
	failureCount int
	successCount int
	lastFailure  time.Time
	openedAt     time.Time

	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	failureWindow    time.Duration

	onStateChange func(state string)

	now func() time.Time
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		state:            stateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		openTimeout:      30 * time.Second,
		failureWindow:    60 * time.Second,
		now:              time.Now,
	}
}

// OnStateChange registers a callback invoked (with the lock held briefly
// released semantics not needed; callback must be fast) on every transition.
func (cb *CircuitBreaker) OnStateChange(fn func(state string)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// Allow reports whether a call may proceed. In open state it transitions
// to half-open once the timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateHalfOpen:
		return true
	case stateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.openTimeout {
			cb.transition(stateHalfOpen)
			cb.successCount = 0
			return true
		}
		return false
	}
	return true
}

// RecordSuccess notes a successful upstream call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(stateClosed)
			cb.failureCount = 0
			cb.successCount = 0
		}
	case stateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure notes a failed upstream call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	switch cb.state {
	case stateHalfOpen:
		cb.transition(stateOpen)
		cb.openedAt = now
		cb.successCount = 0
	case stateClosed:
		// Failures outside the window don't accumulate.
		if !cb.lastFailure.IsZero() && now.Sub(cb.lastFailure) > cb.failureWindow {
			cb.failureCount = 0
		}
		cb.failureCount++
		cb.lastFailure = now
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(stateOpen)
			cb.openedAt = now
		}
	}
}

// State returns the current state name.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

func (cb *CircuitBreaker) transition(to breakerState) {
	if cb.state == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(to.String())
	}
}
