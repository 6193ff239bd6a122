package resp

import (
	"bytes"
	"fmt"
	"strconv"
)

// The reply type of a Value.  The constants deliberately match the wire
// type bytes.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
)

// A single decoded reply.  Exactly one of the payload fields is
// meaningful, selected by Kind.  Null distinguishes the protocol's null
// bulk / null array from an empty one.
type Value struct {
	Kind Kind

	// Simple string or error text.
	Str string

	// Integer payload.
	Int int64

	// Bulk string payload; ignored when Null is set.
	Bulk []byte

	// Array elements; ignored when Null is set.
	Elems []Value

	Null bool
}

func NewSimpleString(s string) Value {
	return Value{Kind: KindSimpleString, Str: s}
}

func NewError(s string) Value {
	return Value{Kind: KindError, Str: s}
}

func NewInteger(i int64) Value {
	return Value{Kind: KindInteger, Int: i}
}

func NewBulkString(b []byte) Value {
	return Value{Kind: KindBulkString, Bulk: b}
}

func NewNullBulkString() Value {
	return Value{Kind: KindBulkString, Null: true}
}

func NewArray(elems []Value) Value {
	return Value{Kind: KindArray, Elems: elems}
}

func NewNullArray() Value {
	return Value{Kind: KindArray, Null: true}
}

// Returns true iff the value is a server-reported error.  All other
// kinds form the success subtype.
func (v Value) IsError() bool {
	return v.Kind == KindError
}

// Structural equality.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind || v.Null != other.Null {
		return false
	}
	switch v.Kind {
	case KindSimpleString, KindError:
		return v.Str == other.Str
	case KindInteger:
		return v.Int == other.Int
	case KindBulkString:
		if v.Null {
			return true
		}
		return bytes.Equal(v.Bulk, other.Bulk)
	case KindArray:
		if v.Null {
			return true
		}
		if len(v.Elems) != len(other.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(other.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Serializes the value back to its wire form, appending to dst.  This is
// what a server would send; the client library itself only decodes
// replies, but tests and scripted servers need the inverse.
func (v Value) AppendEncode(dst []byte) []byte {
	switch v.Kind {
	case KindSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, '\r', '\n')
	case KindBulkString:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Bulk)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.Bulk...)
		return append(dst, '\r', '\n')
	case KindArray:
		if v.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Elems)), 10)
		dst = append(dst, '\r', '\n')
		for _, elem := range v.Elems {
			dst = elem.AppendEncode(dst)
		}
		return dst
	}
	return dst
}

// Human readable rendering for error messages and logs.
func (v Value) String() string {
	switch v.Kind {
	case KindSimpleString:
		return fmt.Sprintf("SimpleString(%q)", v.Str)
	case KindError:
		return fmt.Sprintf("Error(%q)", v.Str)
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.Int)
	case KindBulkString:
		if v.Null {
			return "BulkString(nil)"
		}
		return fmt.Sprintf("BulkString(%q)", v.Bulk)
	case KindArray:
		if v.Null {
			return "Array(nil)"
		}
		return fmt.Sprintf("Array(len=%d)", len(v.Elems))
	}
	return fmt.Sprintf("Unknown(%d)", v.Kind)
}
