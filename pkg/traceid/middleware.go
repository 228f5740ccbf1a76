package traceid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header is the trace id request and response header.
const Header = "X-Trace-Id"

const maxIDLength = 128

// Inbound ids outside this shape are replaced rather than propagated, so a
// hostile client cannot inject log content through the header.
var validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Ensure returns the request's trace id, minting one when the inbound
// header is absent or malformed.
func Ensure(r *http.Request) string {
	traceID := r.Header.Get(Header)
	if !valid(traceID) {
		traceID = uuid.NewString()
	}
	return traceID
}

// Middleware establishes a trace id for every request: header echoed on the
// response, id stored in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := Ensure(r)
		w.Header().Set(Header, traceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), traceID)))
	})
}

func valid(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}
