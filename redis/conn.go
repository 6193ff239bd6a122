package redis

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/edwingeng/deque/v2"
	"github.com/sirupsen/logrus"

	"github.com/meteora-io/redpool/errors"
	"github.com/meteora-io/redpool/resp"
	"github.com/meteora-io/redpool/time2"
)

// The settled outcome of one request.  Exactly one of reply/err is
// meaningful.  Waiter channels must be buffered with capacity one so a
// reply arriving after the caller gave up never blocks the reader.
type result struct {
	command resp.Command
	reply   resp.Value
	err     error
}

type pendingRequest struct {
	command resp.Command
	waiter  chan<- result
}

type connConfig struct {
	addr           string
	connectTimeout time.Duration
	setupCommands  []resp.Command
	dial           func(network string, address string) (net.Conn, error)
	clock          time2.Clock
	logger         logrus.FieldLogger

	// Parent notifications.  onReady fires once, after setup, before the
	// first request is serviced.  onExit fires exactly once when the
	// connection terminates; cause is nil for a clean close.
	onReady func(*conn)
	onExit  func(*conn, error)
}

// A connection actor.  It owns one TCP connection for its whole life:
// it dials, runs the setup commands, announces readiness, then pipelines
// requests and correlates replies in strict FIFO order.  On any failure
// it terminates; it never reconnects itself.
type conn struct {
	id     int
	config connConfig

	mutex       sync.Mutex
	sock        net.Conn
	writer      *bufio.Writer
	pending     *deque.Deque[pendingRequest]
	stashed     []pendingRequest
	ready       bool
	closing     bool
	closeWaiter chan<- result
	terminated  bool
	cause       error

	decoder *resp.Decoder
	done    chan struct{}
}

// This creates the actor and starts its lifecycle goroutine.
func newConn(id int, config connConfig) *conn {
	c := &conn{
		id:      id,
		config:  config,
		pending: deque.NewDeque[pendingRequest](),
		decoder: resp.NewDecoder(),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Closed when the actor has terminated.
func (c *conn) Done() <-chan struct{} {
	return c.done
}

// Submits a request.  Before readiness the request is stashed; in ready
// state it is written to the socket and enqueued for correlation.  A
// connection-close command flips the actor to closing: its waiter is
// settled when the peer finishes closing the socket, not by a reply.
func (c *conn) Send(command resp.Command, waiter chan<- result) error {
	c.mutex.Lock()

	if c.terminated {
		cause := c.cause
		c.mutex.Unlock()
		return &ConnectionLostError{Cause: cause}
	}
	if c.closing {
		c.mutex.Unlock()
		return &ConnectionLostError{
			Cause: errors.New("connection is closing"),
		}
	}
	if !c.ready {
		c.stashed = append(c.stashed, pendingRequest{command, waiter})
		c.mutex.Unlock()
		return nil
	}

	err := c.writeLocked(command, waiter)
	c.mutex.Unlock()

	if err != nil {
		c.terminate(err)
		return &ConnectionLostError{Cause: err}
	}
	return nil
}

// Closes the actor from the outside (pool shutdown).  Pending requests
// fail with ConnectionLost.
func (c *conn) Close() {
	c.terminate(errors.New("connection closed by pool"))
}

// Assumes mutex is held.  Serializes the command onto the socket and
// records where its reply should go.
func (c *conn) writeLocked(
	command resp.Command,
	waiter chan<- result) error {

	if _, err := c.writer.Write(command.Append(nil)); err != nil {
		return errors.Wrap(err, "Write failed")
	}
	if err := c.writer.Flush(); err != nil {
		return errors.Wrap(err, "Flush failed")
	}

	if command.Expectation() == resp.ExpectConnectionClose {
		c.closing = true
		c.closeWaiter = waiter
		// Bound the wait for the peer's close; a read timeout here
		// terminates the actor and settles the waiter with an error.
		if c.config.connectTimeout > 0 && c.sock != nil {
			deadline := c.config.clock.Now().Add(c.config.connectTimeout)
			_ = c.sock.SetReadDeadline(deadline)
		}
	} else {
		c.pending.PushFront(pendingRequest{command, waiter})
	}
	return nil
}

func (c *conn) run() {
	sock, err := c.dialServer()
	if err != nil {
		c.terminate(errors.Wrap(err, "Connect failed"))
		return
	}

	c.mutex.Lock()
	if c.terminated {
		c.mutex.Unlock()
		_ = sock.Close()
		return
	}
	c.sock = sock
	c.writer = bufio.NewWriter(sock)
	c.mutex.Unlock()

	if err := c.runSetup(sock); err != nil {
		c.terminate(err)
		return
	}

	if err := c.announceReady(); err != nil {
		c.terminate(err)
		return
	}

	c.readLoop(sock)
}

func (c *conn) dialServer() (net.Conn, error) {
	if c.config.dial != nil {
		return c.config.dial("tcp", c.config.addr)
	}
	return net.DialTimeout("tcp", c.config.addr, c.config.connectTimeout)
}

// Walks the ordered setup command list synchronously, one
// request/reply at a time, under the connect timeout.
func (c *conn) runSetup(sock net.Conn) error {
	if len(c.config.setupCommands) == 0 {
		return nil
	}

	if c.config.connectTimeout > 0 {
		deadline := c.config.clock.Now().Add(c.config.connectTimeout)
		if err := sock.SetReadDeadline(deadline); err != nil {
			return errors.Wrap(err, "Setup deadline failed")
		}
	}

	for _, command := range c.config.setupCommands {
		c.mutex.Lock()
		if _, err := c.writer.Write(command.Append(nil)); err != nil {
			c.mutex.Unlock()
			return errors.Wrap(err, "Setup write failed")
		}
		if err := c.writer.Flush(); err != nil {
			c.mutex.Unlock()
			return errors.Wrap(err, "Setup flush failed")
		}
		c.mutex.Unlock()

		reply, err := c.readSetupReply(sock)
		if err != nil {
			return err
		}
		if !replyMatchesExpectation(command, reply) {
			return &SetupFailedError{Command: command, Reply: reply}
		}
	}

	return sock.SetReadDeadline(time.Time{})
}

// Reads exactly one reply.  The server only speaks when spoken to, so
// more than one completed reply here is a protocol violation.
func (c *conn) readSetupReply(sock net.Conn) (resp.Value, error) {
	buf := make([]byte, 512)
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			values, derr := c.decoder.Feed(buf[:n])
			if derr != nil {
				return resp.Value{}, errors.Wrap(derr, "Setup decode failed")
			}
			if len(values) > 1 {
				return resp.Value{}, errors.New(
					"Unsolicited reply during setup")
			}
			if len(values) == 1 {
				return values[0], nil
			}
		}
		if err != nil {
			return resp.Value{}, errors.Wrap(err, "Setup read failed")
		}
	}
}

// Flips to ready, flushes the stash in arrival order, then tells the
// parent.
func (c *conn) announceReady() error {
	c.mutex.Lock()
	c.ready = true
	stashed := c.stashed
	c.stashed = nil
	for i, request := range stashed {
		if err := c.writeLocked(request.command, request.waiter); err != nil {
			// Put the unwritten tail back so termination fails it.
			c.stashed = stashed[i:]
			c.mutex.Unlock()
			return err
		}
	}
	c.mutex.Unlock()

	c.logger().Debug("connection ready")
	if c.config.onReady != nil {
		c.config.onReady(c)
	}
	return nil
}

func (c *conn) readLoop(sock net.Conn) {
	buf := make([]byte, 8192)
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			values, derr := c.decoder.Feed(buf[:n])
			for _, value := range values {
				if !c.dispatch(value) {
					c.terminate(errors.Newf(
						"Unexpected reply with no pending request: %s",
						value))
					return
				}
			}
			if derr != nil {
				c.terminate(errors.Wrap(derr, "Decode failed"))
				return
			}
		}
		if err != nil {
			if err == io.EOF && c.isClosing() {
				c.finishClose()
				return
			}
			c.terminate(errors.Wrap(err, "Read failed"))
			return
		}
	}
}

// Correlates one reply with the pending FIFO head.  Returns false on a
// reply that matches nothing, which is a protocol violation unless the
// actor is draining a connection-close acknowledgement.
func (c *conn) dispatch(value resp.Value) bool {
	c.mutex.Lock()
	if c.pending.Len() == 0 {
		closing := c.closing
		c.mutex.Unlock()
		// The close command's own acknowledgement (e.g. +OK from QUIT)
		// is not correlated; the waiter settles on EOF.
		return closing
	}
	request := c.pending.PopBack()
	c.mutex.Unlock()

	request.waiter <- result{
		command: request.command,
		reply:   value,
	}
	return true
}

func (c *conn) isClosing() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closing
}

// The peer closed the socket after a connection-close command: settle
// the close waiter successfully and fail whatever else was pending.
func (c *conn) finishClose() {
	c.mutex.Lock()
	if c.terminated {
		c.mutex.Unlock()
		return
	}
	c.terminated = true
	sock := c.sock
	closeWaiter := c.closeWaiter
	c.closeWaiter = nil
	remaining := c.drainLocked()
	c.mutex.Unlock()

	if sock != nil {
		_ = sock.Close()
	}

	cause := errors.New("connection closed by close command")
	for _, request := range remaining {
		request.waiter <- result{
			command: request.command,
			err:     &ConnectionLostError{Cause: cause},
		}
	}
	if closeWaiter != nil {
		closeWaiter <- result{}
	}

	c.logger().Debug("connection closed")
	close(c.done)
	if c.config.onExit != nil {
		c.config.onExit(c, nil)
	}
}

// Terminates the actor with a failure cause, exactly once.  Every
// pending and stashed request fails with ConnectionLost.
func (c *conn) terminate(cause error) {
	c.mutex.Lock()
	if c.terminated {
		c.mutex.Unlock()
		return
	}
	c.terminated = true
	c.cause = cause
	sock := c.sock
	closeWaiter := c.closeWaiter
	c.closeWaiter = nil
	remaining := c.drainLocked()
	c.mutex.Unlock()

	if sock != nil {
		_ = sock.Close()
	}

	for _, request := range remaining {
		request.waiter <- result{
			command: request.command,
			err:     &ConnectionLostError{Cause: cause},
		}
	}
	if closeWaiter != nil {
		closeWaiter <- result{err: &ConnectionLostError{Cause: cause}}
	}

	c.logger().WithError(cause).Debug("connection terminated")
	close(c.done)
	if c.config.onExit != nil {
		c.config.onExit(c, cause)
	}
}

// Assumes mutex is held.  Empties the pending FIFO and the stash,
// preserving submission order.
func (c *conn) drainLocked() []pendingRequest {
	remaining := make(
		[]pendingRequest, 0, c.pending.Len()+len(c.stashed))
	for c.pending.Len() > 0 {
		remaining = append(remaining, c.pending.PopBack())
	}
	remaining = append(remaining, c.stashed...)
	c.stashed = nil
	return remaining
}

func (c *conn) logger() logrus.FieldLogger {
	return c.config.logger.WithField("conn", c.id)
}

// Whether the reply satisfies the command's expectation tag.  Used for
// setup commands.
func replyMatchesExpectation(
	command resp.Command,
	reply resp.Value) bool {

	switch command.Expectation() {
	case resp.ExpectOkStatus:
		return reply.Kind == resp.KindSimpleString && reply.Str == "OK"
	case resp.ExpectInteger:
		return reply.Kind == resp.KindInteger
	case resp.ExpectBulk:
		return reply.Kind == resp.KindBulkString
	case resp.ExpectConnectionClose:
		return false
	default:
		return !reply.IsError()
	}
}
