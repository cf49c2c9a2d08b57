package resilience

import (
	"context"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrOpen is returned by Do without invoking the operation while the breaker
// is open and the recovery timeout has not elapsed.
var ErrOpen = New(KindBackendUnavailable, "circuit breaker is open")

// Breaker guards calls to the generation backend. One breaker is shared by
// all callers; the whole Do operation runs under a single mutex so state
// transitions are atomic and at most one trial call proceeds in half-open.
type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time

	threshold int
	recovery  time.Duration
	now       func() time.Time
}

// NewBreaker creates a closed breaker. threshold is the consecutive failure
// count that opens it; recovery is how long it stays open before permitting
// a trial call.
func NewBreaker(threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if recovery <= 0 {
		recovery = 60 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		recovery:  recovery,
		now:       time.Now,
	}
}

// Do invokes op through the breaker. While open and inside the recovery
// window it fails fast with ErrOpen. Any error from op is re-returned to the
// caller after state bookkeeping.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) < b.recovery {
			return ErrOpen
		}
		b.state = StateHalfOpen
	}

	err := op(ctx)
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.threshold {
			b.state = StateOpen
		}
		return err
	}

	b.state = StateClosed
	b.failures = 0
	return nil
}

// State reports the current position without advancing the machine.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures reports the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
