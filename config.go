package fluxgate

import (
	"strings"
	"time"
)

// MissingRuleBehavior decides what happens when the default rule set
// cannot be resolved.
type MissingRuleBehavior string

const (
	// MissingAllow admits requests when no rules exist. The default:
	// an unconfigured gate must not take a service down.
	MissingAllow MissingRuleBehavior = "ALLOW"
	// MissingDeny rejects requests when no rules exist.
	MissingDeny MissingRuleBehavior = "DENY"
)

// Valid reports whether b is a known behavior.
func (b MissingRuleBehavior) Valid() bool {
	return b == MissingAllow || b == MissingDeny
}

// Config tunes the Gate middleware. The zero value plus a DefaultRuleSetID
// is usable; Normalize fills the rest.
type Config struct {
	// Enabled gates the whole filter; disabled means pass-through.
	Enabled bool `env:"FLUXGATE_ENABLED" envDefault:"true"`

	// DefaultRuleSetID names the rule set evaluated for every request.
	DefaultRuleSetID string `env:"FLUXGATE_DEFAULT_RULE_SET_ID,required"`

	// IncludePatterns are Ant-style path patterns selecting the requests
	// to rate limit. Empty means all.
	IncludePatterns []string `env:"FLUXGATE_INCLUDE_PATTERNS" envSeparator:","`

	// ExcludePatterns are Ant-style path patterns never rate limited.
	// Exclusion wins over inclusion.
	ExcludePatterns []string `env:"FLUXGATE_EXCLUDE_PATTERNS" envSeparator:","`

	// MissingRuleBehavior applies when the default rule set has no rules
	// or cannot be loaded for a benign reason.
	MissingRuleBehavior MissingRuleBehavior `env:"FLUXGATE_MISSING_RULE_BEHAVIOR" envDefault:"ALLOW"`

	// ClientIPHeader is the proxy header holding the real client address.
	ClientIPHeader string `env:"FLUXGATE_CLIENT_IP_HEADER" envDefault:"X-Forwarded-For"`

	// TrustClientIPHeader enables reading ClientIPHeader. Off by default
	// because the header is client-controlled.
	TrustClientIPHeader bool `env:"FLUXGATE_TRUST_CLIENT_IP_HEADER" envDefault:"false"`

	// UserIDHeader names the header carrying the authenticated user id.
	UserIDHeader string `env:"FLUXGATE_USER_ID_HEADER" envDefault:"X-User-Id"`

	// APIKeyHeader names the header carrying the API key.
	APIKeyHeader string `env:"FLUXGATE_API_KEY_HEADER" envDefault:"X-Api-Key"`

	// WaitEnabled turns the WAIT_FOR_REFILL policy into an actual bounded
	// sleep; disabled, such rejections return 429 immediately.
	WaitEnabled bool `env:"FLUXGATE_WAIT_ENABLED" envDefault:"false"`

	// MaxWait caps how long one request may sleep for a refill.
	MaxWait time.Duration `env:"FLUXGATE_WAIT_MAX_WAIT" envDefault:"5s"`

	// MaxConcurrentWaits caps how many requests may sleep at once; the
	// rest are rejected immediately.
	MaxConcurrentWaits int `env:"FLUXGATE_WAIT_MAX_CONCURRENT" envDefault:"100"`

	// StoreTimeout bounds each rate-limit evaluation against the store.
	StoreTimeout time.Duration `env:"FLUXGATE_STORE_TIMEOUT" envDefault:"2s"`
}

// Normalize fills defaults and validates the enumerated fields.
func (c *Config) Normalize() error {
	if c.DefaultRuleSetID == "" {
		return ErrMissingRuleSetID
	}

	c.MissingRuleBehavior = MissingRuleBehavior(strings.ToUpper(string(c.MissingRuleBehavior)))
	if c.MissingRuleBehavior == "" {
		c.MissingRuleBehavior = MissingAllow
	}
	if !c.MissingRuleBehavior.Valid() {
		return ErrInvalidMissingRuleBehavior
	}

	if c.ClientIPHeader == "" {
		c.ClientIPHeader = "X-Forwarded-For"
	}
	if c.UserIDHeader == "" {
		c.UserIDHeader = "X-User-Id"
	}
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = "X-Api-Key"
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 5 * time.Second
	}
	if c.MaxConcurrentWaits <= 0 {
		c.MaxConcurrentWaits = 100
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 2 * time.Second
	}
	return nil
}
