// Package notify publishes and receives rule-change notifications over a
// Redis pub/sub channel.
//
// The admin surface calls the Publisher at the end of each rule write; the
// core only observes the published messages through the Subscriber, which
// feeds the pubsub reload strategy. Publishing is best-effort: a failed
// publish never fails the admin operation, and a short circuit-breaker
// window keeps a dead broker from slowing down rule writes. The subscriber
// reconnects with capped exponential backoff and drops identical
// back-to-back messages arriving within the dedup window.
package notify
