package redis

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meteora-io/redpool/errors"
	"github.com/meteora-io/redpool/time2"
)

type poolEventKind int

const (
	eventChildReady poolEventKind = iota
	eventChildExited
)

type poolEvent struct {
	kind  poolEventKind
	child *conn
	cause error
}

// A fixed-size supervisor of connection actors.  It recreates
// terminated children through the circuit breaker and round-robin
// routes requests across the members that are currently ready.
//
// All slot and breaker state is owned by the supervisor goroutine;
// routing only reads the ready set under a read lock.
type pool struct {
	options *Options
	clock   time2.Clock
	logger  logrus.FieldLogger
	breaker *breaker

	mutex   sync.RWMutex
	ready   []*conn
	stopped bool

	counter uint64

	events      chan poolEvent
	shutdownReq chan chan struct{}

	shutdownOnce sync.Once
	shutdownDone chan struct{}

	// Supervisor-goroutine private state.
	children map[*conn]struct{}
	creating map[*conn]time.Time
	nextId   int
}

func newPool(options *Options) *pool {
	p := &pool{
		options: options,
		clock:   options.clock(),
		logger:  options.logger(),
		breaker: newBreaker(
			breakerOptions{
				failureTolerance: options.BreakerFailureTolerance,
				openPeriodBase:   options.BreakerOpenPeriodBase,
				openPeriodCap:    options.BreakerOpenPeriodCap,
				halfOpenTimeout:  options.BreakerHalfOpenTimeout,
			},
			options.clock()),
		events:      make(chan poolEvent, options.PoolSize*4),
		shutdownReq: make(chan chan struct{}),
		children:    make(map[*conn]struct{}),
		creating:    make(map[*conn]time.Time),
	}
	go p.supervise()
	return p
}

// Picks a ready connection round-robin.  The pool never queues on the
// caller's behalf: an empty ready set is an immediate error.
func (p *pool) route() (*conn, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if len(p.ready) == 0 {
		return nil, &NoReadyConnectionError{}
	}
	idx := atomic.AddUint64(&p.counter, 1) % uint64(len(p.ready))
	return p.ready[idx], nil
}

// The size of the current ready set.
func (p *pool) numReady() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.ready)
}

// Initiates a graceful stop, waiting up to timeout for every child to
// terminate.  Safe to call more than once.
func (p *pool) shutdown(timeout time.Duration) error {
	p.shutdownOnce.Do(func() {
		done := make(chan struct{})
		p.shutdownDone = done
		p.shutdownReq <- done
	})

	select {
	case <-p.shutdownDone:
		return nil
	case <-p.clock.After(timeout):
		return errors.New("Pool shutdown timed out")
	}
}

func (p *pool) supervise() {
	for {
		p.fillSlots()

		var wake <-chan time.Time
		if len(p.children) < p.options.PoolSize {
			if until, open := p.breaker.OpenUntil(); open {
				wake = p.clock.After(p.clock.Until(until))
			}
		}

		select {
		case event := <-p.events:
			p.handleEvent(event)
		case <-wake:
		case done := <-p.shutdownReq:
			p.drainShutdown(done)
			return
		}
	}
}

// Creates children while a slot is empty and the breaker permits.  Each
// breaker permission buys exactly one creation attempt.
func (p *pool) fillSlots() {
	for len(p.children) < p.options.PoolSize && p.breaker.Allow() {
		p.spawn()
	}
}

func (p *pool) spawn() {
	id := p.nextId
	p.nextId++

	child := newConn(id, connConfig{
		addr:           p.options.Addr,
		connectTimeout: p.options.ConnectTimeout,
		setupCommands:  p.options.SetupCommands,
		dial:           p.options.Dial,
		clock:          p.clock,
		logger:         p.logger,
		onReady: func(c *conn) {
			p.events <- poolEvent{kind: eventChildReady, child: c}
		},
		onExit: func(c *conn, cause error) {
			p.events <- poolEvent{
				kind:  eventChildExited,
				child: c,
				cause: cause,
			}
		},
	})

	p.children[child] = struct{}{}
	p.creating[child] = p.clock.Now()
}

func (p *pool) handleEvent(event poolEvent) {
	switch event.kind {
	case eventChildReady:
		started, wasCreating := p.creating[event.child]
		delete(p.creating, event.child)
		if wasCreating {
			// The breaker outcome is success only if the child became
			// ready within the half-open window of its creation.
			if p.clock.Since(started) <= p.options.BreakerHalfOpenTimeout {
				p.breaker.Success()
			} else {
				p.breaker.Failure()
			}
		}

		p.mutex.Lock()
		if !p.stopped {
			p.ready = append(p.ready, event.child)
		}
		p.mutex.Unlock()

	case eventChildExited:
		if _, wasCreating := p.creating[event.child]; wasCreating {
			delete(p.creating, event.child)
			p.breaker.Failure()
		}
		delete(p.children, event.child)
		p.removeReady(event.child)
		if event.cause != nil {
			p.logger.WithError(event.cause).Warn("pool member lost")
		}
	}
}

func (p *pool) removeReady(child *conn) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i, member := range p.ready {
		if member == child {
			p.ready = append(p.ready[:i], p.ready[i+1:]...)
			return
		}
	}
}

// Stops routing, closes every child, and waits for their exit events.
func (p *pool) drainShutdown(done chan struct{}) {
	p.mutex.Lock()
	p.stopped = true
	p.ready = nil
	p.mutex.Unlock()

	for child := range p.children {
		child.Close()
	}

	for len(p.children) > 0 {
		event := <-p.events
		if event.kind == eventChildExited {
			delete(p.children, event.child)
			delete(p.creating, event.child)
		}
	}

	close(done)
}
