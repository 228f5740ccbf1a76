package limiter

import "maps"

// RequestContext is the snapshot of one request the limiter and key
// resolvers work from. Build it with NewRequestContext; the constructor
// copies both maps so the context stays stable after the HTTP layer moves
// on, and accessors return copies for the same reason.
type RequestContext struct {
	clientIP   string
	userID     string
	apiKey     string
	endpoint   string
	method     string
	headers    map[string]string
	attributes map[string]string
}

// RequestParams carries the raw request data for NewRequestContext.
type RequestParams struct {
	ClientIP   string
	UserID     string
	APIKey     string
	Endpoint   string
	Method     string
	Headers    map[string]string
	Attributes map[string]string
}

// NewRequestContext builds an immutable request snapshot.
func NewRequestContext(p RequestParams) RequestContext {
	return RequestContext{
		clientIP:   p.ClientIP,
		userID:     p.UserID,
		apiKey:     p.APIKey,
		endpoint:   p.Endpoint,
		method:     p.Method,
		headers:    maps.Clone(p.Headers),
		attributes: maps.Clone(p.Attributes),
	}
}

// ClientIP returns the client address, empty when unknown.
func (rc RequestContext) ClientIP() string { return rc.clientIP }

// UserID returns the authenticated user id, empty when anonymous.
func (rc RequestContext) UserID() string { return rc.userID }

// APIKey returns the caller's API key, empty when absent.
func (rc RequestContext) APIKey() string { return rc.apiKey }

// Endpoint returns the request path.
func (rc RequestContext) Endpoint() string { return rc.endpoint }

// Method returns the HTTP method.
func (rc RequestContext) Method() string { return rc.method }

// Header returns the named request header, empty when absent.
func (rc RequestContext) Header(name string) string { return rc.headers[name] }

// Headers returns a copy of the header snapshot.
func (rc RequestContext) Headers() map[string]string { return maps.Clone(rc.headers) }

// Attribute returns the named custom attribute, empty when absent.
func (rc RequestContext) Attribute(name string) string { return rc.attributes[name] }

// Attributes returns a copy of the custom attributes.
func (rc RequestContext) Attributes() map[string]string { return maps.Clone(rc.attributes) }
