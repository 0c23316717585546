// Package sink delivers collected results to their destination.
//
// JSONLines encodes one JSON document per line to any io.Writer. RedisList
// appends the same encoding to a Redis list with RPUSH, pipelined and
// optionally refreshing a TTL, so other processes can consume a run's
// output with BLPOP or LRANGE.
package sink
