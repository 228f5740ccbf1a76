package limiter

import (
	"context"
	"io"
	"log/slog"

	"github.com/fluxgate/fluxgate/pkg/rule"
)

// GlobalKey is the shared bucket key for GLOBAL-scoped rules.
const GlobalKey = "global"

// UnknownKey is the fallback bucket key when no request attribute can
// identify the caller. All such requests share one bucket; deployments that
// want stricter handling plug in their own KeyResolver.
const UnknownKey = "unknown"

// KeyResolver maps a request and a rule to the bucket key the rule's bands
// are counted under. Resolvers must be safe for concurrent use and must
// never return an empty key without an error.
type KeyResolver interface {
	Resolve(ctx context.Context, rc RequestContext, r rule.Rule) (string, error)
}

// KeyResolverFunc adapts a function to the KeyResolver interface.
type KeyResolverFunc func(ctx context.Context, rc RequestContext, r rule.Rule) (string, error)

// Resolve calls f.
func (f KeyResolverFunc) Resolve(ctx context.Context, rc RequestContext, r rule.Rule) (string, error) {
	return f(ctx, rc, r)
}

// ScopeResolver is the default KeyResolver. It derives the key from the
// rule's scope:
//
//	GLOBAL       "global"
//	PER_IP       client IP, "unknown" when absent
//	PER_USER     user id, falling back to PER_IP
//	PER_API_KEY  API key, falling back to PER_IP
//	CUSTOM       the request attribute named by the rule's key strategy id,
//	             falling back to PER_IP
//
// Every fallback is deterministic and logged at debug level.
type ScopeResolver struct {
	log *slog.Logger
}

// NewScopeResolver builds the default resolver. A nil logger disables the
// fallback debug logs.
func NewScopeResolver(log *slog.Logger) *ScopeResolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScopeResolver{log: log}
}

// Resolve maps the request to a bucket key per the rule's scope.
func (sr *ScopeResolver) Resolve(ctx context.Context, rc RequestContext, r rule.Rule) (string, error) {
	switch r.Scope {
	case rule.ScopeGlobal:
		return GlobalKey, nil

	case rule.ScopePerIP:
		return sr.ipKey(ctx, rc, r), nil

	case rule.ScopePerUser:
		if id := rc.UserID(); id != "" {
			return id, nil
		}
		sr.log.DebugContext(ctx, "no user id on request, falling back to client ip",
			slog.String("rule_id", r.ID))
		return sr.ipKey(ctx, rc, r), nil

	case rule.ScopePerAPIKey:
		if key := rc.APIKey(); key != "" {
			return key, nil
		}
		sr.log.DebugContext(ctx, "no api key on request, falling back to client ip",
			slog.String("rule_id", r.ID))
		return sr.ipKey(ctx, rc, r), nil

	case rule.ScopeCustom:
		if v := rc.Attribute(r.KeyStrategyID); v != "" {
			return v, nil
		}
		sr.log.DebugContext(ctx, "custom key attribute absent, falling back to client ip",
			slog.String("rule_id", r.ID),
			slog.String("key_strategy_id", r.KeyStrategyID))
		return sr.ipKey(ctx, rc, r), nil
	}

	return "", rule.ErrInvalidScope
}

func (sr *ScopeResolver) ipKey(ctx context.Context, rc RequestContext, r rule.Rule) string {
	if ip := rc.ClientIP(); ip != "" {
		return ip
	}
	sr.log.DebugContext(ctx, "client ip unknown, using shared fallback bucket",
		slog.String("rule_id", r.ID))
	return UnknownKey
}
