package redis

import (
	"time"

	"github.com/meteora-io/redpool/math2"
	"github.com/meteora-io/redpool/time2"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

type breakerOptions struct {
	// Consecutive creation failures tolerated before opening.  Must be
	// at least 1.
	failureTolerance int

	// Open periods double from the base up to the cap:
	// base, 2*base, 4*base, ..., cap, cap, ...
	openPeriodBase time.Duration
	openPeriodCap  time.Duration

	// How long the half-open probe may take before its outcome counts
	// as a failure.
	halfOpenTimeout time.Duration
}

// A pure decision object gating connection creation.  It owns no timers;
// the pool polls Allow before initiating a creation and reports the
// outcome through Success/Failure.  Not safe for concurrent use: only
// the pool supervisor touches it.
type breaker struct {
	options breakerOptions
	clock   time2.Clock

	state               breakerState
	consecutiveFailures int
	openUntil           time.Time

	// Number of open episodes so far; indexes the period sequence.
	openEpisodes int

	// Set while the single half-open probe is in flight.
	probing bool
}

func newBreaker(options breakerOptions, clock time2.Clock) *breaker {
	return &breaker{
		options: options,
		clock:   clock,
	}
}

// Reports whether a creation attempt may proceed right now.  An expired
// open period transitions to half-open, which permits exactly one
// in-flight probe.
func (b *breaker) Allow() bool {
	if b.state == breakerOpen {
		if b.clock.Now().Before(b.openUntil) {
			return false
		}
		b.state = breakerHalfOpen
		b.probing = false
	}

	if b.state == breakerHalfOpen {
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}

	return true
}

// Records a successful creation.
func (b *breaker) Success() {
	b.state = breakerClosed
	b.consecutiveFailures = 0
	b.probing = false
}

// Records a failed creation.  In half-open this reopens immediately; in
// closed it opens once the tolerance is exhausted.
func (b *breaker) Failure() {
	switch b.state {
	case breakerClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.options.failureTolerance {
			b.open()
		}
	case breakerHalfOpen:
		b.open()
	case breakerOpen:
		// A straggler from before the breaker opened; the open period
		// already accounts for it.
	}
}

// Returns the end of the current open period, if the breaker is open.
// The pool uses this to schedule a single wake-up instead of polling.
func (b *breaker) OpenUntil() (time.Time, bool) {
	if b.state != breakerOpen {
		return time.Time{}, false
	}
	return b.openUntil, true
}

func (b *breaker) open() {
	b.state = breakerOpen
	b.probing = false
	b.consecutiveFailures = 0
	b.openUntil = b.clock.Now().Add(b.openPeriod(b.openEpisodes))
	b.openEpisodes++
}

// The n-th (0-based) open period of the doubling sequence.
func (b *breaker) openPeriod(n int) time.Duration {
	period := b.options.openPeriodBase
	for i := 0; i < n; i++ {
		period *= 2
		if period >= b.options.openPeriodCap || period <= 0 {
			return b.options.openPeriodCap
		}
	}
	return math2.MinDuration(period, b.options.openPeriodCap)
}
