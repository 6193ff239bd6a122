// Package resp implements the Redis serialization protocol: command
// encoding, reply values, and an incremental reply decoder which
// reconstructs complete replies from a stream of byte chunks.
//
// The package deals only with framing.  It assumes nothing about which
// commands produced the replies; correlation is the caller's problem.
package resp

import (
	"github.com/meteora-io/redpool/errors"
)

var (
	// The leading byte of a frame is not one of the five reply types,
	// the frame is empty, an integer reply does not parse, or arrays
	// nest deeper than MaxArrayDepth.
	ErrMalformedFrame = errors.New("Malformed frame")

	// A bulk or array length failed to parse, or is smaller than -1.
	ErrBadLength = errors.New("Bad length")

	// CRLF is missing where the protocol requires it.
	ErrUnexpectedTerminator = errors.New("Unexpected terminator")
)
