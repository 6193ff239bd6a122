package redis

import (
	"io/ioutil"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meteora-io/redpool/errors"
	"github.com/meteora-io/redpool/math2"
	"github.com/meteora-io/redpool/resp"
	"github.com/meteora-io/redpool/time2"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 5 * time.Second
	defaultPoolSize       = 4

	defaultBreakerFailureTolerance = 3
	defaultBreakerOpenPeriodBase   = 500 * time.Millisecond
	defaultBreakerOpenPeriodCap    = 30 * time.Second
	defaultBreakerHalfOpenTimeout  = 5 * time.Second

	shutdownTimeout = 30 * time.Second

	maxWaitPollInterval = 30 * time.Millisecond
)

type Options struct {
	// host:port of the server.
	Addr string

	// Bounds dialing plus the setup command exchange.  Defaults to 5s.
	ConnectTimeout time.Duration

	// Deadline for each Execute call.  Defaults to 5s.
	RequestTimeout time.Duration

	// Number of persistent connections.  Defaults to 4.
	PoolSize int

	// Commands run on every new connection before it serves requests,
	// in order (e.g. ClientSetName, Auth, Select).  A rejected setup
	// command is a configuration error and kills the connection.
	SetupCommands []resp.Command

	// Creation gating.  Zero values take the defaults above.
	BreakerFailureTolerance int
	BreakerOpenPeriodBase   time.Duration
	BreakerOpenPeriodCap    time.Duration
	BreakerHalfOpenTimeout  time.Duration

	// Dial specifies the dial function for creating network
	// connections.  If Dial is nil, net.DialTimeout is used with
	// ConnectTimeout.
	Dial func(network string, address string) (net.Conn, error)

	// This specifies the clock.  When non-nil the client uses it
	// instead of the wall clock for every deadline and wake-up.
	Clock time2.Clock

	// Lifecycle logging hook.  Silent when nil.
	Logger logrus.FieldLogger
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.PoolSize == 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.BreakerFailureTolerance == 0 {
		o.BreakerFailureTolerance = defaultBreakerFailureTolerance
	}
	if o.BreakerOpenPeriodBase == 0 {
		o.BreakerOpenPeriodBase = defaultBreakerOpenPeriodBase
	}
	if o.BreakerOpenPeriodCap == 0 {
		o.BreakerOpenPeriodCap = defaultBreakerOpenPeriodCap
	}
	if o.BreakerHalfOpenTimeout == 0 {
		o.BreakerHalfOpenTimeout = defaultBreakerHalfOpenTimeout
	}
}

func (o *Options) clock() time2.Clock {
	if o.Clock == nil {
		return time2.DefaultClock
	}
	return o.Clock
}

func (o *Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		silent := logrus.New()
		silent.Out = ioutil.Discard
		return silent
	}
	return o.Logger
}

// An asynchronous Redis client backed by a resilient connection pool.
// All methods are safe for concurrent use; each request settles exactly
// once.
type Client interface {
	// Routes the command to a ready connection and waits for its
	// success reply, up to RequestTimeout.
	Execute(command resp.Command) (resp.Value, error)

	// Issues a connection-close command (e.g. Quit) and waits for the
	// connection to finish closing.
	ExecuteConnectionClose(command resp.Command) error

	// Typed variants: check that the reply has the kind each one
	// extracts and return the payload, or UnexpectedReplyError.  The
	// command's expectation tag is not consulted.
	ExecuteInteger(command resp.Command) (int64, error)
	ExecuteString(command resp.Command) (string, error)
	ExecuteBytes(command resp.Command) ([]byte, error)
	ExecuteOk(command resp.Command) error

	// Blocks until at least minConnections pool members are ready, or
	// the timeout elapses.
	WaitUntilConnected(
		timeout time.Duration,
		minConnections int) error

	// Gracefully stops the pool and all connections.
	Shutdown() error
}

type client struct {
	options *Options
	clock   time2.Clock
	pool    *pool
}

// This creates a client and starts connecting its pool in the
// background.  Use WaitUntilConnected to block until members are ready.
func NewClient(options Options) (Client, error) {
	if options.Addr == "" {
		return nil, errors.New("Addr must be specified")
	}
	if options.PoolSize < 0 {
		return nil, errors.Newf("Invalid pool size %d", options.PoolSize)
	}
	options.applyDefaults()

	return &client{
		options: &options,
		clock:   options.clock(),
		pool:    newPool(&options),
	}, nil
}

func (c *client) Execute(command resp.Command) (resp.Value, error) {
	if command.Expectation() == resp.ExpectConnectionClose {
		return resp.Value{}, &RequestExecutionError{
			Command: command,
			Cause: errors.New(
				"connection-close command requires ExecuteConnectionClose"),
		}
	}

	waiter := make(chan result, 1)
	if err := c.send(command, waiter); err != nil {
		return resp.Value{}, err
	}

	select {
	case r := <-waiter:
		if r.err != nil {
			return resp.Value{}, r.err
		}
		if r.reply.IsError() {
			return resp.Value{}, &ErrorReplyError{
				Command: command,
				Reply:   r.reply,
			}
		}
		return r.reply, nil
	case <-c.clock.After(c.options.RequestTimeout):
		// The connection is not notified: the pending slot stays in its
		// FIFO and the late reply, if any, is dequeued and discarded
		// into this abandoned buffer.
		return resp.Value{}, &RequestTimeoutError{Command: command}
	}
}

func (c *client) ExecuteConnectionClose(command resp.Command) error {
	if command.Expectation() != resp.ExpectConnectionClose {
		return &RequestExecutionError{
			Command: command,
			Cause: errors.New(
				"command does not expect connection close"),
		}
	}

	waiter := make(chan result, 1)
	if err := c.send(command, waiter); err != nil {
		return err
	}

	select {
	case r := <-waiter:
		return r.err
	case <-c.clock.After(c.options.RequestTimeout):
		return &RequestTimeoutError{Command: command}
	}
}

func (c *client) send(command resp.Command, waiter chan result) error {
	member, err := c.pool.route()
	if err != nil {
		return err
	}
	return member.Send(command, waiter)
}

func (c *client) ExecuteInteger(command resp.Command) (int64, error) {
	reply, err := c.Execute(command)
	if err != nil {
		return 0, err
	}
	if reply.Kind != resp.KindInteger {
		return 0, &UnexpectedReplyError{Command: command, Reply: reply}
	}
	return reply.Int, nil
}

func (c *client) ExecuteString(command resp.Command) (string, error) {
	reply, err := c.Execute(command)
	if err != nil {
		return "", err
	}
	switch {
	case reply.Kind == resp.KindSimpleString:
		return reply.Str, nil
	case reply.Kind == resp.KindBulkString && !reply.Null:
		return string(reply.Bulk), nil
	}
	return "", &UnexpectedReplyError{Command: command, Reply: reply}
}

// Returns nil without error for a null bulk reply.
func (c *client) ExecuteBytes(command resp.Command) ([]byte, error) {
	reply, err := c.Execute(command)
	if err != nil {
		return nil, err
	}
	if reply.Kind != resp.KindBulkString {
		return nil, &UnexpectedReplyError{Command: command, Reply: reply}
	}
	if reply.Null {
		return nil, nil
	}
	return reply.Bulk, nil
}

func (c *client) ExecuteOk(command resp.Command) error {
	reply, err := c.Execute(command)
	if err != nil {
		return err
	}
	if reply.Kind != resp.KindSimpleString || reply.Str != "OK" {
		return &UnexpectedReplyError{Command: command, Reply: reply}
	}
	return nil
}

func (c *client) WaitUntilConnected(
	timeout time.Duration,
	minConnections int) error {

	deadline := c.clock.Now().Add(timeout)
	interval := math2.MinDuration(timeout/10, maxWaitPollInterval)

	for {
		ready := c.pool.numReady()
		if ready >= minConnections {
			return nil
		}
		if !c.clock.Now().Before(deadline) {
			return &ConnectTimeoutError{
				MinConnections: minConnections,
				Ready:          ready,
			}
		}
		<-c.clock.After(interval)
	}
}

func (c *client) Shutdown() error {
	return c.pool.shutdown(shutdownTimeout)
}
