package fluxgate

import (
	"net/http"

	"github.com/fluxgate/fluxgate/pkg/limiter"
)

// RequestContextCustomizer mutates the request snapshot before the rate
// limit decision, typically to fill UserID or custom attributes from the
// application's own auth context. It runs after the built-in header
// extraction, so anything it sets wins.
type RequestContextCustomizer func(r *http.Request, params *limiter.RequestParams)
