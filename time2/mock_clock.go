package time2

import (
	"sync"
	"time"
)

// A fake clock useful for testing timing.  Advance moves the fake time
// forward and fires any After waiters whose deadline has been reached.
type MockClock struct {
	mutex       sync.Mutex
	currentTime time.Time
	waiters     []*mockWaiter
}

type mockWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

var _ Clock = &MockClock{}

// Resets the mock clock back to initial state.  Pending After waiters are
// dropped without firing.
func (c *MockClock) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = time.Time{}
	c.waiters = nil
}

// Set the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = t
	c.fireWaiters()
}

// Advances the mock clock by the specified duration.
func (c *MockClock) Advance(delta time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = c.currentTime.Add(delta)
	c.fireWaiters()
}

// Returns the fake current time.
func (c *MockClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.currentTime
}

// Returns the time elapsed since t on the fake clock.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Returns the duration until t on the fake clock.
func (c *MockClock) Until(t time.Time) time.Duration {
	return t.Sub(c.Now())
}

// Returns a channel which fires once the fake clock reaches now + d.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	waiter := &mockWaiter{
		deadline: c.currentTime.Add(d),
		channel:  make(chan time.Time, 1),
	}
	c.waiters = append(c.waiters, waiter)
	c.fireWaiters()
	return waiter.channel
}

// Sleep on a mock clock returns immediately.  Tests drive ordering through
// Advance instead of real sleeping.
func (c *MockClock) Sleep(d time.Duration) {
}

// Assumes mutex is held.
func (c *MockClock) fireWaiters() {
	remaining := c.waiters[:0]
	for _, waiter := range c.waiters {
		if !waiter.deadline.After(c.currentTime) {
			waiter.channel <- c.currentTime
		} else {
			remaining = append(remaining, waiter)
		}
	}
	c.waiters = remaining
}
