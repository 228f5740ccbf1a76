package fluxgate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/fluxgate"
	"github.com/fluxgate/fluxgate/pkg/bucketstore"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/rule"
	"github.com/fluxgate/fluxgate/pkg/rulestore"
	"github.com/fluxgate/fluxgate/pkg/ruleset"
	"github.com/fluxgate/fluxgate/pkg/traceid"
)

func newTestRule(id, setID string, capacity int64, window time.Duration, policy rule.Policy) rule.Rule {
	return rule.Rule{
		ID:        id,
		Enabled:   true,
		Scope:     rule.ScopePerIP,
		Policy:    policy,
		Bands:     []rule.Band{rule.NewBand(capacity, window, "")},
		RuleSetID: setID,
	}
}

func newTestGate(t *testing.T, cfg fluxgate.Config, rules ...rule.Rule) *fluxgate.Gate {
	t.Helper()

	repo := rulestore.NewMemoryRepository()
	require.NoError(t, repo.Seed(rules...))

	provider, err := ruleset.NewRepositoryProvider(repo)
	require.NoError(t, err)

	store := bucketstore.NewMemoryStore()
	t.Cleanup(store.Close)

	gate, err := fluxgate.New(store, provider, cfg)
	require.NoError(t, err)
	return gate
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGate_AllowsUntilExhausted(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"},
		newTestRule("r1", "api", 3, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	for i, wantRemaining := range []string{"2", "1", "0"} {
		rec := doRequest(h, "/api/users", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, wantRemaining, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := doRequest(h, "/api/users", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Error      string `json:"error"`
		RetryAfter int64  `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.Positive(t, body.RetryAfter)

	snap := gate.Counters().Snapshot()
	assert.EqualValues(t, 3, snap.Allowed)
	assert.EqualValues(t, 1, snap.Rejected)
}

func TestGate_SeparateBucketsPerClientIP(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"},
		newTestRule("r1", "api", 1, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "/x", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.2").Code)
}

func TestGate_PathFiltering(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{
			Enabled:          true,
			DefaultRuleSetID: "api",
			IncludePatterns:  []string{"/api/**"},
			ExcludePatterns:  []string{"/api/health"},
		},
		newTestRule("r1", "api", 1, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	// Outside the include list: untouched, no rate-limit headers.
	rec := doRequest(h, "/public/page", "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))

	// Excluded path wins over the include pattern.
	rec = doRequest(h, "/api/health", "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))

	// Included path consumes the single token, then rejects.
	require.Equal(t, http.StatusOK, doRequest(h, "/api/users", "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "/api/users", "10.0.0.1").Code)

	// Filtered traffic never counted against the bucket.
	for n := 0; n < 5; n++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "/api/health", "10.0.0.1").Code)
	}
}

func TestGate_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{Enabled: false, DefaultRuleSetID: "api"},
		newTestRule("r1", "api", 1, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	for n := 0; n < 10; n++ {
		rec := doRequest(h, "/x", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestGate_MissingRuleSet(t *testing.T) {
	t.Parallel()

	t.Run("allow by default", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t, fluxgate.Config{Enabled: true, DefaultRuleSetID: "ghost"})
		rec := doRequest(gate.Middleware(okHandler()), "/x", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("deny when configured", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t, fluxgate.Config{
			Enabled:             true,
			DefaultRuleSetID:    "ghost",
			MissingRuleBehavior: fluxgate.MissingDeny,
		})
		rec := doRequest(gate.Middleware(okHandler()), "/x", "10.0.0.1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	})
}

type failingProvider struct{ err error }

func (p failingProvider) FindByID(context.Context, string) (*limiter.RuleSet, error) {
	return nil, p.err
}

func TestGate_FailsOpenOnProviderError(t *testing.T) {
	t.Parallel()

	store := bucketstore.NewMemoryStore()
	t.Cleanup(store.Close)

	gate, err := fluxgate.New(store, failingProvider{err: errors.New("backend down")},
		fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"})
	require.NoError(t, err)

	h := gate.Middleware(okHandler())
	for n := 0; n < 3; n++ {
		require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)
	}
	assert.EqualValues(t, 3, gate.Counters().Snapshot().FailOpen)
}

func TestGate_WaitForRefill(t *testing.T) {
	t.Parallel()

	t.Run("waits then admits", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t,
			fluxgate.Config{
				Enabled:          true,
				DefaultRuleSetID: "api",
				WaitEnabled:      true,
				MaxWait:          time.Second,
			},
			newTestRule("r1", "api", 1, 50*time.Millisecond, rule.PolicyWait),
		)
		h := gate.Middleware(okHandler())

		require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)

		start := time.Now()
		rec := doRequest(h, "/x", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
		assert.EqualValues(t, 1, gate.Counters().Snapshot().Waited)
	})

	t.Run("rejects when wait exceeds maximum", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t,
			fluxgate.Config{
				Enabled:          true,
				DefaultRuleSetID: "api",
				WaitEnabled:      true,
				MaxWait:          10 * time.Millisecond,
			},
			newTestRule("r1", "api", 1, time.Hour, rule.PolicyWait),
		)
		h := gate.Middleware(okHandler())

		require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)
		require.Equal(t, http.StatusTooManyRequests, doRequest(h, "/x", "10.0.0.1").Code)
		assert.Zero(t, gate.Counters().Snapshot().Waited)
	})

	t.Run("wait pool bounds concurrent waiters", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t,
			fluxgate.Config{
				Enabled:            true,
				DefaultRuleSetID:   "api",
				WaitEnabled:        true,
				MaxWait:            time.Second,
				MaxConcurrentWaits: 1,
			},
			newTestRule("r1", "api", 1, 300*time.Millisecond, rule.PolicyWait),
		)
		h := gate.Middleware(okHandler())

		require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)

		codes := make(chan int, 3)
		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes <- doRequest(h, "/x", "10.0.0.1").Code
			}()
		}
		wg.Wait()
		close(codes)

		var admitted, rejected int
		for code := range codes {
			switch code {
			case http.StatusOK:
				admitted++
			case http.StatusTooManyRequests:
				rejected++
			}
		}
		// Only the single wait slot sleeps for the refill; the others are
		// turned away at once.
		assert.Equal(t, 1, admitted)
		assert.Equal(t, 2, rejected)
		assert.EqualValues(t, 1, gate.Counters().Snapshot().Waited)
	})

	t.Run("wait disabled rejects immediately", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t,
			fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"},
			newTestRule("r1", "api", 1, 50*time.Millisecond, rule.PolicyWait),
		)
		h := gate.Middleware(okHandler())

		require.Equal(t, http.StatusOK, doRequest(h, "/x", "10.0.0.1").Code)
		start := time.Now()
		require.Equal(t, http.StatusTooManyRequests, doRequest(h, "/x", "10.0.0.1").Code)
		assert.Less(t, time.Since(start), 40*time.Millisecond)
	})
}

func TestGate_TrustedClientIPHeader(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{
			Enabled:             true,
			DefaultRuleSetID:    "api",
			TrustClientIPHeader: true,
		},
		newTestRule("r1", "api", 1, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("203.0.113.7, 10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, send("203.0.113.7, 10.0.0.9"))
	assert.Equal(t, http.StatusOK, send("203.0.113.8"))
}

func TestGate_CustomizerOverridesUserID(t *testing.T) {
	t.Parallel()

	repo := rulestore.NewMemoryRepository()
	r := newTestRule("r1", "api", 1, time.Minute, rule.PolicyReject)
	r.Scope = rule.ScopePerUser
	require.NoError(t, repo.Seed(r))

	provider, err := ruleset.NewRepositoryProvider(repo)
	require.NoError(t, err)

	store := bucketstore.NewMemoryStore()
	t.Cleanup(store.Close)

	gate, err := fluxgate.New(store, provider,
		fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"},
		fluxgate.WithCustomizer(func(r *http.Request, p *limiter.RequestParams) {
			p.UserID = r.Header.Get("X-Session-User")
		}))
	require.NoError(t, err)

	h := gate.Middleware(okHandler())
	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Session-User", user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("alice"))
	require.Equal(t, http.StatusTooManyRequests, send("alice"))
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestGate_TraceID(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t,
		fluxgate.Config{Enabled: true, DefaultRuleSetID: "api"},
		newTestRule("r1", "api", 5, time.Minute, rule.PolicyReject),
	)
	h := gate.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set(traceid.Header, "trace-abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-abc-123", rec.Header().Get(traceid.Header))

	// Malformed inbound ids are replaced, never echoed.
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set(traceid.Header, "bad id\nwith newline")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	got := rec.Header().Get(traceid.Header)
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "bad id\nwith newline", got)
}

func TestGate_ConstructionErrors(t *testing.T) {
	t.Parallel()

	store := bucketstore.NewMemoryStore()
	t.Cleanup(store.Close)
	provider := failingProvider{err: errors.New("unused")}

	_, err := fluxgate.New(nil, provider, fluxgate.Config{DefaultRuleSetID: "api"})
	require.ErrorIs(t, err, fluxgate.ErrNilStore)

	_, err = fluxgate.New(store, nil, fluxgate.Config{DefaultRuleSetID: "api"})
	require.ErrorIs(t, err, fluxgate.ErrNilProvider)

	_, err = fluxgate.New(store, provider, fluxgate.Config{})
	require.ErrorIs(t, err, fluxgate.ErrMissingRuleSetID)

	_, err = fluxgate.New(store, provider, fluxgate.Config{
		DefaultRuleSetID:    "api",
		MissingRuleBehavior: "MAYBE",
	})
	require.ErrorIs(t, err, fluxgate.ErrInvalidMissingRuleBehavior)
}
