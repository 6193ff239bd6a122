package redis

import (
	. "gopkg.in/check.v1"

	"github.com/meteora-io/redpool/resp"
)

type CommandsSuite struct{}

var _ = Suite(&CommandsSuite{})

func (s *CommandsSuite) TestWireForms(c *C) {
	cases := []struct {
		command resp.Command
		wire    string
	}{
		{Get("foo"), "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"},
		{Set("k", []byte("v")), "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"},
		{Del("a", "b"), "*3\r\n$3\r\nDEL\r\n$1\r\na\r\n$1\r\nb\r\n"},
		{Incr("n"), "*2\r\n$4\r\nINCR\r\n$1\r\nn\r\n"},
		{IncrBy("n", -5), "*3\r\n$6\r\nINCRBY\r\n$1\r\nn\r\n$2\r\n-5\r\n"},
		{Ping(), "*1\r\n$4\r\nPING\r\n"},
		{Select(7), "*2\r\n$6\r\nSELECT\r\n$1\r\n7\r\n"},
		{Expire("k", 60), "*3\r\n$6\r\nEXPIRE\r\n$1\r\nk\r\n$2\r\n60\r\n"},
		{Quit(), "*1\r\n$4\r\nQUIT\r\n"},
		{
			ClientSetName("me"),
			"*3\r\n$6\r\nCLIENT\r\n$7\r\nSETNAME\r\n$2\r\nme\r\n",
		},
	}

	for _, testCase := range cases {
		c.Assert(
			string(testCase.command.Append(nil)),
			Equals,
			testCase.wire)
	}
}

func (s *CommandsSuite) TestExpectations(c *C) {
	c.Assert(Get("k").Expectation(), Equals, resp.ExpectBulk)
	c.Assert(Set("k", nil).Expectation(), Equals, resp.ExpectOkStatus)
	c.Assert(Incr("k").Expectation(), Equals, resp.ExpectInteger)
	c.Assert(Ttl("k").Expectation(), Equals, resp.ExpectInteger)
	c.Assert(Ping().Expectation(), Equals, resp.ExpectAny)
	c.Assert(
		Quit().Expectation(), Equals, resp.ExpectConnectionClose)
	c.Assert(
		Shutdown().Expectation(), Equals, resp.ExpectConnectionClose)
}
