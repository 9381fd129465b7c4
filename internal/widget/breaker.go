package widget

import "time"

// Defaults for the breaker guarding periodic commands.
const (
	DefaultFailureThreshold = 5
	DefaultBreakerCooldown  = time.Minute
)

// breakerState is the state of a breaker.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops a periodic command from being spawned while it keeps
// failing. After threshold consecutive failures it opens and rejects runs
// for cooldown; then one trial run is let through, which closes it on
// success and reopens it on failure.
//
// A breaker belongs to one producer and is not safe for concurrent use.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow reports whether a run may start now.
func (b *breaker) allow() bool {
	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = breakerHalfOpen
		return true
	default:
		return true
	}
}

// success records a successful run.
func (b *breaker) success() {
	b.state = breakerClosed
	b.failures = 0
}

// failure records a failed run and reports whether it opened the breaker.
func (b *breaker) failure() bool {
	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		opened := b.state != breakerOpen
		b.state = breakerOpen
		b.openedAt = b.now()
		return opened
	}
	return false
}
