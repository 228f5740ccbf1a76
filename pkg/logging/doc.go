// Package logging builds the slog loggers every FluxGate component writes
// through.
//
// New assembles a JSON or text handler, static attributes and a decorator
// that enriches each record from context extractors, so request-scoped
// values like the trace id appear on every line logged under that request's
// context without threading the id through call sites.
package logging
