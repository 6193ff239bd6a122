package redis

import (
	"strconv"

	"github.com/meteora-io/redpool/resp"
)

// Constructors for the flat command catalog.  Each returns an immutable
// resp.Command carrying the expectation tag its reply shape warrants;
// setup command replies are checked against that tag.  Payload bytes are
// never interpreted.

func Get(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectBulk, "GET", key)
}

func Set(key string, value []byte) resp.Command {
	return resp.NewCommand(
		resp.ExpectOkStatus, []byte("SET"), []byte(key), value)
}

func SetEx(key string, seconds int64, value []byte) resp.Command {
	return resp.NewCommand(
		resp.ExpectOkStatus,
		[]byte("SETEX"),
		[]byte(key),
		[]byte(strconv.FormatInt(seconds, 10)),
		value)
}

func SetNx(key string, value []byte) resp.Command {
	return resp.NewCommand(
		resp.ExpectInteger, []byte("SETNX"), []byte(key), value)
}

func Del(keys ...string) resp.Command {
	args := make([]string, 0, len(keys)+1)
	args = append(args, "DEL")
	args = append(args, keys...)
	return resp.NewCommandStrings(resp.ExpectInteger, args...)
}

func Exists(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectInteger, "EXISTS", key)
}

func Incr(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectInteger, "INCR", key)
}

func IncrBy(key string, delta int64) resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectInteger, "INCRBY", key, strconv.FormatInt(delta, 10))
}

func Decr(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectInteger, "DECR", key)
}

func DecrBy(key string, delta int64) resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectInteger, "DECRBY", key, strconv.FormatInt(delta, 10))
}

func Append(key string, value []byte) resp.Command {
	return resp.NewCommand(
		resp.ExpectInteger, []byte("APPEND"), []byte(key), value)
}

func StrLen(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectInteger, "STRLEN", key)
}

func Expire(key string, seconds int64) resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectInteger, "EXPIRE", key, strconv.FormatInt(seconds, 10))
}

func Ttl(key string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectInteger, "TTL", key)
}

// PONG is a status reply but not OK, hence no status expectation.
func Ping() resp.Command {
	return resp.NewCommandStrings(resp.ExpectAny, "PING")
}

func Echo(message []byte) resp.Command {
	return resp.NewCommand(resp.ExpectBulk, []byte("ECHO"), message)
}

func Select(db int) resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectOkStatus, "SELECT", strconv.Itoa(db))
}

func FlushDb() resp.Command {
	return resp.NewCommandStrings(resp.ExpectOkStatus, "FLUSHDB")
}

func ClientSetName(name string) resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectOkStatus, "CLIENT", "SETNAME", name)
}

func Auth(password string) resp.Command {
	return resp.NewCommandStrings(resp.ExpectOkStatus, "AUTH", password)
}

// The server acknowledges QUIT and then closes the connection.
func Quit() resp.Command {
	return resp.NewCommandStrings(resp.ExpectConnectionClose, "QUIT")
}

// The server closes the connection without a reply.
func Shutdown() resp.Command {
	return resp.NewCommandStrings(
		resp.ExpectConnectionClose, "SHUTDOWN", "NOSAVE")
}
