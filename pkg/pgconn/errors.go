package pgconn

import "errors"

var (
	// ErrInvalidURL is returned when the connection string cannot be parsed.
	ErrInvalidURL = errors.New("failed to parse postgres connection string")

	// ErrNotReady is returned when Postgres does not answer pings within
	// the retry budget.
	ErrNotReady = errors.New("postgres did not become ready within the retry budget")

	// ErrMigrationFailed wraps a failed schema migration.
	ErrMigrationFailed = errors.New("failed to apply migrations")

	// ErrHealthcheckFailed wraps a failed liveness ping.
	ErrHealthcheckFailed = errors.New("postgres healthcheck failed")
)
