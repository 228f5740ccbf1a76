package mongoconn

import "errors"

var (
	// ErrNotReady is returned when Mongo does not answer pings within the
	// retry budget.
	ErrNotReady = errors.New("mongo did not become ready within the retry budget")

	// ErrHealthcheckFailed wraps a failed liveness ping.
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)
