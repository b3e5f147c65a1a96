// Package resilience guards outbound provider calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is shedding calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker sheds calls to the model provider after repeated failures, giving
// a struggling upstream a quiet period instead of a retry storm. After
// maxFailures consecutive errors the circuit opens; once the cooldown
// elapses a single trial call goes through, and its outcome decides whether
// the circuit closes again or reopens.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker that opens after maxFailures
// consecutive errors and cools down for cooldown before the trial call.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs call unless the circuit is open and folds its outcome into
// the breaker state. The call's own error passes through unchanged.
func (b *Breaker) Execute(call func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := call()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == stateHalfOpen || b.failures >= b.maxFailures {
			b.state = stateOpen
			b.openedAt = b.now()
		}
		return err
	}

	b.failures = 0
	b.state = stateClosed
	return nil
}

// admit decides whether a call may proceed, moving an open circuit to
// half-open once the cooldown has elapsed.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	b.state = stateHalfOpen
	return true
}
