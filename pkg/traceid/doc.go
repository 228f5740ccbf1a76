// Package traceid carries a per-request trace identifier through context
// and the X-Trace-Id header.
//
// The middleware accepts a well-formed inbound id or mints a fresh v4 UUID,
// echoes it on the response and stores it in the request context. The
// logger extractor stamps the id onto every log record written with that
// context, which is how fail-open decisions stay attributable to a request.
package traceid
