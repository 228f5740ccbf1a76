package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeader is the proxy header consulted when header trust is enabled.
const DefaultHeader = "X-Forwarded-For"

// FromRequest returns the normalized client IP.
//
// With trustHeader set, the named header (X-Forwarded-For by default) is
// consulted first; it may hold a comma-separated chain, of which the first
// valid address (the original client as seen by the outermost proxy) is
// taken. Without trust, or when the header holds nothing parseable, the
// socket's remote address is used. Returns empty when no address can be
// parsed at all.
func FromRequest(r *http.Request, header string, trustHeader bool) string {
	if trustHeader {
		if header == "" {
			header = DefaultHeader
		}
		if chain := r.Header.Get(header); chain != "" {
			for _, entry := range strings.Split(chain, ",") {
				if ip := normalize(entry); ip != "" {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// No port attached; RemoteAddr may already be a bare address.
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// normalize parses and canonicalizes one address, returning empty when it
// is not a valid IP.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
