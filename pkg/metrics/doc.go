// Package metrics observes rate-limit decisions after they are made.
//
// Recorders are composed with Composite, which runs every recorder for
// every decision and isolates their failures: a recorder that errors or
// panics is logged and never stops its peers, and nothing a recorder does
// can change the decision. Counters keeps cheap in-process tallies the
// admin surface exposes; SlogRecorder writes one structured log line per
// decision.
package metrics
