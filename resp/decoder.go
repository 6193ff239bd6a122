package resp

import (
	"bytes"
	"strconv"

	"github.com/meteora-io/redpool/errors"
)

// Nesting deeper than this fails with ErrMalformedFrame.
const MaxArrayDepth = 128

type arrayFrame struct {
	count int
	elems []Value
}

// An incremental reply decoder.  Feed byte chunks in arrival order; each
// call returns the replies completed by that chunk, in order.  Left-over
// bytes are retained for the next call, so frames may be split at
// arbitrary byte boundaries, including inside a length header, inside
// bulk payload bytes, or between CR and LF.
//
// The first decode error poisons the decoder permanently: every later
// Feed fails fast with the original error.  The owning connection treats
// poisoning as fatal.
type Decoder struct {
	buf []byte

	// In-progress nested arrays, outermost first.
	stack []arrayFrame

	// Length of the bulk payload currently awaited, or -1.
	bulkLen int

	poisoned error
}

func NewDecoder() *Decoder {
	return &Decoder{
		bulkLen: -1,
	}
}

// Appends the chunk to the internal buffer and drives the parse as far
// as possible.  Returns the completed top-level replies, oldest first.
func (d *Decoder) Feed(chunk []byte) ([]Value, error) {
	if d.poisoned != nil {
		return nil, d.poisoned
	}

	d.buf = append(d.buf, chunk...)

	var out []Value
	pos := 0
	for {
		if d.bulkLen >= 0 {
			// Awaiting <bulkLen> payload bytes plus CRLF.
			need := d.bulkLen + 2
			if len(d.buf)-pos < need {
				break
			}
			payload := d.buf[pos : pos+d.bulkLen]
			if d.buf[pos+d.bulkLen] != '\r' ||
				d.buf[pos+d.bulkLen+1] != '\n' {
				return out, d.poison(errors.Wrap(
					ErrUnexpectedTerminator,
					"Bulk payload not CRLF terminated"))
			}
			value := NewBulkString(
				append(make([]byte, 0, len(payload)), payload...))
			pos += need
			d.bulkLen = -1
			out = d.deliver(value, out)
			continue
		}

		lineEnd := bytes.IndexByte(d.buf[pos:], '\n')
		if lineEnd < 0 {
			break
		}
		if lineEnd == 0 || d.buf[pos+lineEnd-1] != '\r' {
			return out, d.poison(errors.Wrap(
				ErrUnexpectedTerminator,
				"Line not CRLF terminated"))
		}
		line := d.buf[pos : pos+lineEnd-1]
		pos += lineEnd + 1

		if len(line) == 0 {
			return out, d.poison(errors.Wrap(
				ErrMalformedFrame, "Empty frame"))
		}

		switch line[0] {
		case '+':
			out = d.deliver(NewSimpleString(string(line[1:])), out)
		case '-':
			out = d.deliver(NewError(string(line[1:])), out)
		case ':':
			n, err := strconv.ParseInt(string(line[1:]), 10, 64)
			if err != nil {
				return out, d.poison(errors.Wrapf(
					ErrMalformedFrame,
					"Bad integer reply %q", line[1:]))
			}
			out = d.deliver(NewInteger(n), out)
		case '$':
			length, err := parseLength(line[1:])
			if err != nil {
				return out, d.poison(err)
			}
			if length == -1 {
				out = d.deliver(NewNullBulkString(), out)
			} else {
				d.bulkLen = length
			}
		case '*':
			count, err := parseLength(line[1:])
			if err != nil {
				return out, d.poison(err)
			}
			switch {
			case count == -1:
				out = d.deliver(NewNullArray(), out)
			case count == 0:
				out = d.deliver(NewArray([]Value{}), out)
			default:
				if len(d.stack) >= MaxArrayDepth {
					return out, d.poison(errors.Wrapf(
						ErrMalformedFrame,
						"Array nesting deeper than %d",
						MaxArrayDepth))
				}
				d.stack = append(d.stack, arrayFrame{count: count})
			}
		default:
			return out, d.poison(errors.Wrapf(
				ErrMalformedFrame,
				"Unknown frame type %q", line[0]))
		}
	}

	// Retain only the unconsumed tail.
	d.buf = append(d.buf[:0], d.buf[pos:]...)

	return out, nil
}

// Folds a completed value into the innermost pending array, collapsing
// arrays that fill up; a value completed with no pending arrays is a
// finished top-level reply.
func (d *Decoder) deliver(value Value, out []Value) []Value {
	for {
		if len(d.stack) == 0 {
			return append(out, value)
		}
		top := &d.stack[len(d.stack)-1]
		top.elems = append(top.elems, value)
		if len(top.elems) < top.count {
			return out
		}
		value = NewArray(top.elems)
		d.stack = d.stack[:len(d.stack)-1]
	}
}

func (d *Decoder) poison(err error) error {
	d.poisoned = err
	d.buf = nil
	d.stack = nil
	return err
}

func parseLength(digits []byte) (int, error) {
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadLength, "Bad length %q", digits)
	}
	if n < -1 {
		return 0, errors.Wrapf(ErrBadLength, "Negative length %d", n)
	}
	if n > int64(int(^uint(0)>>1)) {
		return 0, errors.Wrapf(ErrBadLength, "Length %d too large", n)
	}
	return int(n), nil
}
