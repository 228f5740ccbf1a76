package adminapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fluxgate/fluxgate/pkg/metrics"
	"github.com/fluxgate/fluxgate/pkg/reload"
	"github.com/fluxgate/fluxgate/pkg/ruleset"
)

// CacheInspector is the read-only view of the caching provider the API
// reports on.
type CacheInspector interface {
	CachedIDs() []string
	Stats() ruleset.Stats
}

// Healthcheck probes one dependency. A nil error means healthy.
type Healthcheck func(ctx context.Context) error

// API serves the operational endpoints. Provider is required; everything
// else is optional and its endpoints degrade gracefully when absent.
type API struct {
	provider ruleset.Provider
	cache    CacheInspector
	strategy reload.Strategy
	counters *metrics.Counters
	checks   map[string]Healthcheck
	log      *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithCacheInspector wires cache statistics into GET /cache/stats.
func WithCacheInspector(c CacheInspector) Option {
	return func(a *API) {
		if c != nil {
			a.cache = c
		}
	}
}

// WithStrategy wires a reload strategy into the POST /reload endpoints.
func WithStrategy(s reload.Strategy) Option {
	return func(a *API) {
		if s != nil {
			a.strategy = s
		}
	}
}

// WithCounters includes decision tallies in GET /cache/stats.
func WithCounters(c *metrics.Counters) Option {
	return func(a *API) {
		if c != nil {
			a.counters = c
		}
	}
}

// WithHealthcheck registers a named dependency probe for GET /healthz.
func WithHealthcheck(name string, check Healthcheck) Option {
	return func(a *API) {
		if name != "" && check != nil {
			a.checks[name] = check
		}
	}
}

// WithLogger sets the API's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// New builds the admin API over a rule set provider.
func New(provider ruleset.Provider, opts ...Option) (*API, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	a := &API{
		provider: provider,
		checks:   make(map[string]Healthcheck),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Router returns the admin routes, ready to mount.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/rulesets/{id}", a.getRuleSet)
	r.Get("/cache/stats", a.getCacheStats)
	r.Get("/healthz", a.getHealth)
	r.Post("/reload", a.postReloadAll)
	r.Post("/reload/{id}", a.postReload)

	return r
}

func (a *API) getRuleSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	set, err := a.provider.FindByID(r.Context(), id)
	if err != nil {
		a.log.ErrorContext(r.Context(), "rule set lookup failed",
			slog.String("rule_set_id", id), slog.Any("error", err))
		a.writeError(w, http.StatusInternalServerError, "rule set lookup failed")
		return
	}
	if set == nil {
		a.writeError(w, http.StatusNotFound, "rule set not found")
		return
	}
	a.writeJSON(w, http.StatusOK, set.Doc())
}

type cacheStatsResponse struct {
	Hits        uint64            `json:"hits"`
	Misses      uint64            `json:"misses"`
	Evictions   uint64            `json:"evictions"`
	Expirations uint64            `json:"expirations"`
	Size        int               `json:"size"`
	CachedIDs   []string          `json:"cachedIds"`
	Decisions   *metrics.Snapshot `json:"decisions,omitempty"`
}

func (a *API) getCacheStats(w http.ResponseWriter, _ *http.Request) {
	if a.cache == nil {
		a.writeError(w, http.StatusNotFound, "cache statistics not available")
		return
	}

	stats := a.cache.Stats()
	resp := cacheStatsResponse{
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Evictions:   stats.Evictions,
		Expirations: stats.Expirations,
		Size:        stats.Size,
		CachedIDs:   a.cache.CachedIDs(),
	}
	if resp.CachedIDs == nil {
		resp.CachedIDs = []string{}
	}
	if a.counters != nil {
		snap := a.counters.Snapshot()
		resp.Decisions = &snap
	}
	a.writeJSON(w, http.StatusOK, resp)
}

const healthcheckTimeout = 5 * time.Second

func (a *API) getHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(a.checks))
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			a.log.ErrorContext(ctx, "healthcheck failed",
				slog.String("check", name), slog.Any("error", err))
			results[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: "ok", Checks: results}
	if status != http.StatusOK {
		body.Status = "unhealthy"
	}
	a.writeJSON(w, status, body)
}

func (a *API) postReloadAll(w http.ResponseWriter, r *http.Request) {
	if a.strategy == nil {
		a.writeError(w, http.StatusNotFound, "reload strategy not configured")
		return
	}
	a.strategy.TriggerReloadAll(r.Context(), reload.SourceAPI)
	a.writeJSON(w, http.StatusAccepted, map[string]string{"status": "reload triggered"})
}

func (a *API) postReload(w http.ResponseWriter, r *http.Request) {
	if a.strategy == nil {
		a.writeError(w, http.StatusNotFound, "reload strategy not configured")
		return
	}
	id := chi.URLParam(r, "id")
	a.strategy.TriggerReload(r.Context(), id, reload.SourceAPI)
	a.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "reload triggered",
		"ruleSetId": id,
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response", slog.Any("error", err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}
