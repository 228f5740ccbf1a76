// Package reload detects rule changes and propagates them to listeners
// without a restart.
//
// Two strategies exist. Polling fingerprints the currently cached rule sets
// at a fixed interval and emits an event when a fingerprint moves. PubSub
// subscribes to the rule-change channel and translates published messages
// into events, reconnecting with exponential backoff when the subscription
// drops.
//
// Both strategies serialize event dispatch, manual triggers included. A
// listener that fails or panics is logged and never blocks the listeners
// after it, so listeners are expected to be fast, non-blocking and
// idempotent. The core registers two listeners: the caching rule-set
// provider, which drops the affected cache entries, and the bucket reset
// handler, which purges stored bucket state so new rules take effect
// immediately.
package reload
