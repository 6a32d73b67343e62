package notify

import (
	"sync"
	"time"
)

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type destinationState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// Breaker stops sending to a destination after consecutive transport failures.
// A zero cooldown keeps an opened circuit open until Reset.
type Breaker struct {
	mu        sync.Mutex
	states    map[string]*destinationState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewBreaker creates a breaker. A threshold below 1 disables it.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		states:    make(map[string]*destinationState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow returns ErrCircuitOpen when the destination should not be tried
func (b *Breaker) Allow(destination string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[destination]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if b.cooldown > 0 && b.now().Sub(s.openedAt) >= b.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

// RecordSuccess closes the destination's circuit
func (b *Breaker) RecordSuccess(destination string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.states[destination]; ok {
		s.state = stateClosed
		s.consecutiveFailures = 0
	}
}

// RecordFailure counts a failure and opens the circuit at the threshold
func (b *Breaker) RecordFailure(destination string) {
	if b.threshold < 1 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[destination]
	if !ok {
		s = &destinationState{}
		b.states[destination] = s
	}

	s.consecutiveFailures++
	if s.state == stateHalfOpen || s.consecutiveFailures >= b.threshold {
		s.state = stateOpen
		s.openedAt = b.now()
	}
}

// Reset forgets all failures
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = make(map[string]*destinationState)
}
