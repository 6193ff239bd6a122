package redis

import (
	"fmt"

	"github.com/meteora-io/redpool/errors"
	"github.com/meteora-io/redpool/resp"
)

// The server answered the command with an error reply.  This is a domain
// error; the connection stays healthy.
type ErrorReplyError struct {
	Command resp.Command
	Reply   resp.Value
}

func (e *ErrorReplyError) Error() string {
	return fmt.Sprintf(
		"%s: server returned error: %s", e.Command.Name(), e.Reply.Str)
}

// The reply shape contradicts the command's expectation tag.
type UnexpectedReplyError struct {
	Command resp.Command
	Reply   resp.Value
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf(
		"%s: unexpected reply %s", e.Command.Name(), e.Reply)
}

// The request deadline elapsed before a reply arrived.
type RequestTimeoutError struct {
	Command resp.Command
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out", e.Command.Name())
}

// The pool had no ready connection at routing time.
type NoReadyConnectionError struct{}

func (e *NoReadyConnectionError) Error() string {
	return "no ready connection"
}

// The connection died while the request was pending (or before it could
// be written).
type ConnectionLostError struct {
	Cause error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause == nil {
		return "connection lost"
	}
	return fmt.Sprintf(
		"connection lost: %s", errors.RootError(e.Cause).Error())
}

// Any other request failure, with the underlying cause wrapped.
type RequestExecutionError struct {
	Command resp.Command
	Cause   error
}

func (e *RequestExecutionError) Error() string {
	return fmt.Sprintf(
		"%s: request failed: %v", e.Command.Name(), e.Cause)
}

// A setup command was rejected during connection bring-up.  This is a
// configuration error; retrying will not help.
type SetupFailedError struct {
	Command resp.Command
	Reply   resp.Value
}

func (e *SetupFailedError) Error() string {
	return fmt.Sprintf(
		"setup command %s rejected: %s", e.Command.Name(), e.Reply)
}

// WaitUntilConnected gave up before the requested number of connections
// became ready.
type ConnectTimeoutError struct {
	MinConnections int
	Ready          int
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf(
		"timed out waiting for %d connections (%d ready)",
		e.MinConnections,
		e.Ready)
}

// Retry predicates.  Each unwraps through the errors package first so
// wrapped causes classify the same as bare ones.

func IsErrorReply(err error) bool {
	_, ok := errors.RootError(err).(*ErrorReplyError)
	return ok
}

func IsUnexpectedReply(err error) bool {
	_, ok := errors.RootError(err).(*UnexpectedReplyError)
	return ok
}

func IsRequestTimeout(err error) bool {
	_, ok := errors.RootError(err).(*RequestTimeoutError)
	return ok
}

func IsNoReadyConnection(err error) bool {
	_, ok := errors.RootError(err).(*NoReadyConnectionError)
	return ok
}

func IsConnectionLost(err error) bool {
	_, ok := errors.RootError(err).(*ConnectionLostError)
	return ok
}

func IsSetupFailed(err error) bool {
	_, ok := errors.RootError(err).(*SetupFailedError)
	return ok
}

func IsConnectTimeout(err error) bool {
	_, ok := errors.RootError(err).(*ConnectTimeoutError)
	return ok
}
