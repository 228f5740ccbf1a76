package fluxgate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fluxgate/fluxgate/pkg/antmatch"
	"github.com/fluxgate/fluxgate/pkg/bucketstore"
	"github.com/fluxgate/fluxgate/pkg/clientip"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/metrics"
	"github.com/fluxgate/fluxgate/pkg/rule"
	"github.com/fluxgate/fluxgate/pkg/ruleset"
	"github.com/fluxgate/fluxgate/pkg/traceid"
)

// RemainingHeader reports the smallest remaining token count across the
// evaluated bands. Omitted when nothing was evaluated.
const RemainingHeader = "X-RateLimit-Remaining"

// Gate is the HTTP middleware that applies distributed rate limits.
// Every failure of the limiting machinery fails open: the request is
// admitted and the failure is logged.
type Gate struct {
	cfg       Config
	provider  ruleset.Provider
	limiter   *limiter.Limiter
	filter    *antmatch.Filter
	counters  *metrics.Counters
	customize RequestContextCustomizer
	log       *slog.Logger

	// waitSlots bounds how many requests may sleep for a refill at once.
	waitSlots chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithCounters sets the counter set bumped for waits and fail-opens.
func WithCounters(c *metrics.Counters) Option {
	return func(g *Gate) {
		if c != nil {
			g.counters = c
		}
	}
}

// WithCustomizer installs a hook that enriches the request snapshot
// before evaluation.
func WithCustomizer(fn RequestContextCustomizer) Option {
	return func(g *Gate) {
		if fn != nil {
			g.customize = fn
		}
	}
}

// New builds a gate over a bucket store and a rule set provider. The
// config is normalized in place; an unusable config fails construction
// rather than surfacing per request.
func New(store bucketstore.Store, provider ruleset.Provider, cfg Config, opts ...Option) (*Gate, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	g := &Gate{
		cfg:      cfg,
		provider: provider,
		filter:   antmatch.NewFilter(cfg.IncludePatterns, cfg.ExcludePatterns),
		counters: metrics.NewCounters(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}

	lim, err := limiter.New(store, limiter.WithLogger(g.log))
	if err != nil {
		return nil, err
	}
	g.limiter = lim
	g.waitSlots = make(chan struct{}, cfg.MaxConcurrentWaits)

	return g, nil
}

// Counters returns the gate's decision tallies.
func (g *Gate) Counters() *metrics.Counters { return g.counters }

// Middleware wraps next with rate limiting. Requests outside the
// include/exclude patterns pass through untouched; everything else gets a
// trace id, a decision and the rate-limit response headers.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.cfg.Enabled || !g.filter.Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tid := traceid.Ensure(r)
		w.Header().Set(traceid.Header, tid)
		r = r.WithContext(traceid.WithContext(r.Context(), tid))

		res, err := g.decide(r)
		if err != nil {
			g.failOpen(r.Context(), err)
			next.ServeHTTP(w, r)
			return
		}
		g.counters.Record(r.Context(), limiter.RequestContext{}, res)

		if res.Remaining >= 0 {
			remaining := res.Remaining
			if !res.Allowed {
				remaining = 0
			}
			w.Header().Set(RemainingHeader, formatInt(remaining))
		}

		if res.Allowed {
			g.serve(w, r, next)
			return
		}
		g.reject(w, r, res.RetryAfter())
	})
}

// serve runs the admitted request and logs its outcome.
func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	start := time.Now()
	next.ServeHTTP(ww, r)
	g.log.InfoContext(r.Context(), "request admitted",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", ww.Status()),
		slog.Duration("duration", time.Since(start)))
}

// decide evaluates the default rule set against the request, waiting for a
// refill once when the matched rule's policy asks for it.
func (g *Gate) decide(r *http.Request) (limiter.Result, error) {
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.StoreTimeout)
	defer cancel()

	set, err := g.provider.FindByID(ctx, g.cfg.DefaultRuleSetID)
	if err != nil {
		return limiter.Result{}, err
	}
	if set == nil {
		return g.missingRuleResult(r.Context()), nil
	}

	rc := g.requestContext(r)

	res, err := g.limiter.TryConsume(ctx, rc, set, 1)
	if err != nil {
		return limiter.Result{}, err
	}
	if res.Allowed || res.Policy() != rule.PolicyWait || !g.cfg.WaitEnabled {
		return res, nil
	}
	return g.waitAndRetry(r.Context(), rc, set, res)
}

// waitAndRetry sleeps until the rejecting bucket should have capacity and
// consumes once more. Over-long waits, a full wait pool and client
// cancellation all degrade to the original rejection.
func (g *Gate) waitAndRetry(ctx context.Context, rc limiter.RequestContext, set *limiter.RuleSet, rejected limiter.Result) (limiter.Result, error) {
	if rejected.WaitFor <= 0 || rejected.WaitFor > g.cfg.MaxWait {
		return rejected, nil
	}

	select {
	case g.waitSlots <- struct{}{}:
	default:
		g.log.DebugContext(ctx, "wait pool exhausted, rejecting",
			slog.String("rule_set_id", set.ID))
		return rejected, nil
	}
	defer func() { <-g.waitSlots }()

	timer := time.NewTimer(rejected.WaitFor)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return rejected, nil
	}

	g.counters.AddWaited()

	retryCtx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()
	res, err := g.limiter.TryConsume(retryCtx, rc, set, 1)
	if err != nil {
		return limiter.Result{}, err
	}
	return res, nil
}

// requestContext snapshots the request for key resolution.
func (g *Gate) requestContext(r *http.Request) limiter.RequestContext {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	params := limiter.RequestParams{
		ClientIP: clientip.FromRequest(r, g.cfg.ClientIPHeader, g.cfg.TrustClientIPHeader),
		UserID:   r.Header.Get(g.cfg.UserIDHeader),
		APIKey:   r.Header.Get(g.cfg.APIKeyHeader),
		Endpoint: r.URL.Path,
		Method:   r.Method,
		Headers:  headers,
	}
	if g.customize != nil {
		g.customize(r, &params)
	}
	return limiter.NewRequestContext(params)
}

// missingRuleResult maps an absent rule set to the configured behavior.
func (g *Gate) missingRuleResult(ctx context.Context) limiter.Result {
	if g.cfg.MissingRuleBehavior == MissingDeny {
		g.log.WarnContext(ctx, "rule set has no rules, denying",
			slog.String("rule_set_id", g.cfg.DefaultRuleSetID))
		return limiter.Result{Allowed: false, Remaining: -1}
	}
	return limiter.Result{Allowed: true, Remaining: -1}
}

// failOpen logs the failure and counts the admitted request.
func (g *Gate) failOpen(ctx context.Context, err error) {
	g.counters.AddFailOpen()
	g.log.ErrorContext(ctx, "rate limiting unavailable, admitting request",
		slog.String("rule_set_id", g.cfg.DefaultRuleSetID),
		slog.Any("error", err))
}

// reject writes the 429 response.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, retryAfter int64) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", formatInt(retryAfter))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)

	body := struct {
		Error      string `json:"error"`
		RetryAfter int64  `json:"retryAfter"`
	}{
		Error:      "Rate limit exceeded",
		RetryAfter: retryAfter,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.log.ErrorContext(r.Context(), "failed to write rejection body", slog.Any("error", err))
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
