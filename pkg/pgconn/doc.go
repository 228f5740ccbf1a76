// Package pgconn connects FluxGate to a PostgreSQL rule store, the
// alternative backend for deployments that already run Postgres. Migrate
// applies the embedded schema migrations through goose before the
// repository is constructed.
package pgconn
