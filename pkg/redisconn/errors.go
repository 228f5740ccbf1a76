package redisconn

import "errors"

var (
	// ErrInvalidURL is returned when the connection URL cannot be parsed.
	ErrInvalidURL = errors.New("failed to parse redis connection url")

	// ErrInvalidMode is returned for a deployment mode outside
	// {STANDALONE, CLUSTER}.
	ErrInvalidMode = errors.New("store mode must be STANDALONE or CLUSTER")

	// ErrNotReady is returned when the store does not answer pings within
	// the configured retry budget.
	ErrNotReady = errors.New("redis did not become ready within the retry budget")

	// ErrHealthcheckFailed wraps a failed liveness ping.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
