package resp

import (
	"strconv"
)

// The reply shape a command is allowed to assume.  The expectation is
// part of a command's static identity: setup command replies are checked
// against it, and connection-close commands change the connection
// lifecycle after send.
type Expectation int

const (
	// No constraint on the reply shape.
	ExpectAny Expectation = iota

	// The reply must be a bulk string (possibly null).
	ExpectBulk

	// The reply must be an integer.
	ExpectInteger

	// The reply must be the +OK status.
	ExpectOkStatus

	// The command causes the server to close the connection; there is
	// no reply to correlate.
	ExpectConnectionClose
)

// An immutable command: an ordered argument list plus an expectation
// tag.  Serialization is deterministic.
type Command struct {
	args        [][]byte
	expectation Expectation
}

// This creates a command from raw byte-string arguments.  The argument
// slices are retained; callers must not mutate them afterwards.
func NewCommand(expectation Expectation, args ...[]byte) Command {
	return Command{
		args:        args,
		expectation: expectation,
	}
}

// Same as NewCommand, for string arguments.
func NewCommandStrings(expectation Expectation, args ...string) Command {
	byteArgs := make([][]byte, len(args))
	for i, arg := range args {
		byteArgs[i] = []byte(arg)
	}
	return NewCommand(expectation, byteArgs...)
}

func (c Command) Expectation() Expectation {
	return c.expectation
}

// The ordered argument list.  Callers must not mutate the result.
func (c Command) Args() [][]byte {
	return c.args
}

// The command name (first argument) for error messages and logging.
func (c Command) Name() string {
	if len(c.args) == 0 {
		return ""
	}
	return string(c.args[0])
}

// Serializes the command as a multi-bulk request, appending to dst:
// *<argc>CRLF then $<len>CRLF<bytes>CRLF per argument.  Inline commands
// are never emitted.
func (c Command) Append(dst []byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(c.args)), 10)
	dst = append(dst, '\r', '\n')
	for _, arg := range c.args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, arg...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}
