package redis

import (
	"net"
	"sync/atomic"
	"time"

	. "gopkg.in/check.v1"

	. "github.com/meteora-io/redpool/gocheck2"
	"github.com/meteora-io/redpool/resp"
)

type PoolSuite struct{}

var _ = Suite(&PoolSuite{})

func pongHandler() func(net.Conn) {
	return commandHandler(func(command resp.Value) []byte {
		return []byte("+PONG\r\n")
	})
}

func (s *PoolSuite) newPool(
	c *C,
	addr string,
	mods ...func(*Options)) *pool {

	options := Options{
		Addr:           addr,
		ConnectTimeout: time.Second,
		PoolSize:       2,
		Logger:         testLogger(),
	}
	for _, mod := range mods {
		mod(&options)
	}
	options.applyDefaults()
	return newPool(&options)
}

func (s *PoolSuite) TestAllMembersBecomeReady(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	pool := s.newPool(c, server.addr, func(options *Options) {
		options.PoolSize = 3
	})
	defer pool.shutdown(time.Second)

	waitFor(c, 2*time.Second, func() bool {
		return pool.numReady() == 3
	})
	c.Assert(server.numAccepted(), Equals, 3)
}

func (s *PoolSuite) TestRoundRobinRouting(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	pool := s.newPool(c, server.addr)
	defer pool.shutdown(time.Second)

	waitFor(c, 2*time.Second, func() bool {
		return pool.numReady() == 2
	})

	first, err := pool.route()
	c.Assert(err, IsNil)
	second, err := pool.route()
	c.Assert(err, IsNil)
	third, err := pool.route()
	c.Assert(err, IsNil)

	c.Assert(first, Not(Equals), second)
	c.Assert(third, Equals, first)
}

func (s *PoolSuite) TestNoReadyConnection(c *C) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	addr := listener.Addr().String()
	c.Assert(listener.Close(), IsNil)

	pool := s.newPool(c, addr)
	defer pool.shutdown(time.Second)

	_, err = pool.route()
	c.Assert(err, NotNil)
	c.Assert(IsNoReadyConnection(err), IsTrue)
}

func (s *PoolSuite) TestMemberReplacedAfterFailure(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	pool := s.newPool(c, server.addr, func(options *Options) {
		options.PoolSize = 1
	})
	defer pool.shutdown(time.Second)

	waitFor(c, 2*time.Second, func() bool {
		return pool.numReady() == 1
	})
	original, err := pool.route()
	c.Assert(err, IsNil)

	original.Close()

	waitFor(c, 2*time.Second, func() bool {
		if pool.numReady() != 1 {
			return false
		}
		replacement, err := pool.route()
		return err == nil && replacement != original
	})
}

func (s *PoolSuite) TestBreakerDefersCreation(c *C) {
	var attempts int64

	pool := s.newPool(c, "127.0.0.1:1", func(options *Options) {
		options.PoolSize = 1
		options.BreakerFailureTolerance = 2
		options.BreakerOpenPeriodBase = 300 * time.Millisecond
		options.Dial = func(network, address string) (net.Conn, error) {
			atomic.AddInt64(&attempts, 1)
			return nil, &net.OpError{Op: "dial", Err: &net.AddrError{
				Err:  "connection refused",
				Addr: address,
			}}
		}
	})
	defer pool.shutdown(time.Second)

	// Two consecutive failures open the breaker.
	waitFor(c, 2*time.Second, func() bool {
		return atomic.LoadInt64(&attempts) == 2
	})

	// No new attempt while the breaker is open.
	time.Sleep(100 * time.Millisecond)
	c.Assert(atomic.LoadInt64(&attempts), Equals, int64(2))

	_, err := pool.route()
	c.Assert(err, NotNil)
	c.Assert(IsNoReadyConnection(err), IsTrue)

	// After the open period a single half-open probe goes out.
	waitFor(c, 2*time.Second, func() bool {
		return atomic.LoadInt64(&attempts) >= 3
	})
}

func (s *PoolSuite) TestBreakerProbeSuccessRestoresPool(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	var failures int64
	pool := s.newPool(c, server.addr, func(options *Options) {
		options.PoolSize = 1
		options.BreakerFailureTolerance = 2
		options.BreakerOpenPeriodBase = 50 * time.Millisecond
		options.Dial = func(network, address string) (net.Conn, error) {
			// The first two dials fail; afterwards connect normally.
			if atomic.AddInt64(&failures, 1) <= 2 {
				return nil, &net.AddrError{
					Err:  "connection refused",
					Addr: address,
				}
			}
			return net.DialTimeout(network, address, time.Second)
		}
	})
	defer pool.shutdown(time.Second)

	waitFor(c, 3*time.Second, func() bool {
		return pool.numReady() == 1
	})
}

func (s *PoolSuite) TestShutdown(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	pool := s.newPool(c, server.addr)

	waitFor(c, 2*time.Second, func() bool {
		return pool.numReady() == 2
	})

	c.Assert(pool.shutdown(5*time.Second), IsNil)
	c.Assert(pool.numReady(), Equals, 0)

	_, err := pool.route()
	c.Assert(err, NotNil)
	c.Assert(IsNoReadyConnection(err), IsTrue)

	// Idempotent.
	c.Assert(pool.shutdown(5*time.Second), IsNil)
}

func (s *PoolSuite) TestSlowChildStillServes(c *C) {
	server := newScriptServer(c, pongHandler())
	defer server.Close()

	pool := s.newPool(c, server.addr, func(options *Options) {
		options.PoolSize = 1
		options.BreakerHalfOpenTimeout = 10 * time.Millisecond
		options.Dial = func(network, address string) (net.Conn, error) {
			// Slower than the half-open window: the breaker records a
			// failure but the healthy child still joins the ready set.
			time.Sleep(30 * time.Millisecond)
			return net.DialTimeout(network, address, time.Second)
		}
	})
	defer pool.shutdown(time.Second)

	waitFor(c, 2*time.Second, func() bool {
		return pool.numReady() == 1
	})
}
