package resp

import (
	. "gopkg.in/check.v1"

	. "github.com/meteora-io/redpool/gocheck2"
)

type ValueSuite struct{}

var _ = Suite(&ValueSuite{})

func (s *ValueSuite) TestEqual(c *C) {
	c.Assert(
		NewSimpleString("OK").Equal(NewSimpleString("OK")), IsTrue)
	c.Assert(
		NewSimpleString("OK").Equal(NewError("OK")), IsFalse)
	c.Assert(NewInteger(7).Equal(NewInteger(7)), IsTrue)
	c.Assert(NewInteger(7).Equal(NewInteger(8)), IsFalse)

	c.Assert(
		NewBulkString([]byte("x")).Equal(NewBulkString([]byte("x"))),
		IsTrue)
	c.Assert(
		NewBulkString(nil).Equal(NewNullBulkString()),
		IsFalse)
	c.Assert(NewNullBulkString().Equal(NewNullBulkString()), IsTrue)

	c.Assert(NewArray([]Value{}).Equal(NewNullArray()), IsFalse)
	c.Assert(
		NewArray([]Value{NewInteger(1)}).Equal(
			NewArray([]Value{NewInteger(1)})),
		IsTrue)
}

func (s *ValueSuite) TestRoundTrip(c *C) {
	values := []Value{
		NewSimpleString("PONG"),
		NewError("WRONGTYPE bad"),
		NewInteger(-42),
		NewBulkString([]byte("hello")),
		NewBulkString([]byte{}),
		NewNullBulkString(),
		NewNullArray(),
		NewArray([]Value{}),
		NewArray([]Value{
			NewInteger(1),
			NewArray([]Value{
				NewBulkString([]byte("nested")),
				NewNullBulkString(),
			}),
			NewSimpleString("OK"),
		}),
	}

	for _, value := range values {
		decoder := NewDecoder()
		decoded, err := decoder.Feed(value.AppendEncode(nil))
		c.Assert(err, IsNil)
		c.Assert(decoded, HasLen, 1)
		c.Assert(decoded[0], DeepEqualsPretty, value)
	}
}

func (s *ValueSuite) TestIsError(c *C) {
	c.Assert(NewError("boom").IsError(), IsTrue)
	c.Assert(NewSimpleString("OK").IsError(), IsFalse)
	c.Assert(NewNullBulkString().IsError(), IsFalse)
}
