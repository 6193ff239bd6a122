// Package redis implements an asynchronous, pipelining client for
// Redis-compatible servers.
//
// The client maintains a fixed-size pool of persistent connections.
// Each connection pipelines outbound commands and correlates inbound
// replies in strict FIFO order; the pool recreates failed connections
// under a circuit breaker and round-robin routes requests across the
// members that are currently ready.
//
// Construct commands with the catalog functions (Get, Set, Incr, ...)
// or resp.NewCommand directly, then run them through Execute or one of
// its typed variants:
//
//	client, err := redis.NewClient(redis.Options{
//		Addr:     "localhost:6379",
//		PoolSize: 4,
//		SetupCommands: []resp.Command{
//			redis.ClientSetName("worker-1"),
//		},
//	})
//	if err != nil {
//		...
//	}
//	defer client.Shutdown()
//
//	if err := client.WaitUntilConnected(5*time.Second, 1); err != nil {
//		...
//	}
//	value, err := client.ExecuteBytes(redis.Get("foo"))
//
// Blocking commands (BLPOP and friends), subscriptions and MULTI/EXEC
// are unsupported: they do not mix with a shared pipelined connection.
package redis
