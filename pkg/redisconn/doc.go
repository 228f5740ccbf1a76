// Package redisconn connects FluxGate to the shared key-value store.
//
// The same client serves the bucket scripts, the rule-change pub/sub and
// the bucket purge, so the process holds one pooled connection regardless
// of how many components talk to Redis. Connect honors the configured
// deployment mode: STANDALONE parses a single-node URL, CLUSTER fans the
// address list out to a cluster client.
package redisconn
