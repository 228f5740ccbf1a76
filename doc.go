// Package fluxgate is a distributed HTTP rate-limiting middleware.
//
// Gate sits in front of an application's handlers and decides whether to
// admit, delay or reject each request. Decisions come from token buckets
// held in a shared key-value store, evaluated atomically by server-side
// scripts, so every node of a deployment counts against the same limits.
// Rules live in an external rule store, are cached locally and reload
// without a restart when the admin surface announces a change.
//
// Minimal wiring with the in-memory store:
//
//	store := bucketstore.NewMemoryStore()
//	repo := rulestore.NewMemoryRepository()
//	provider, _ := ruleset.NewRepositoryProvider(repo)
//	caching, _ := ruleset.NewCachingProvider(provider, ruleset.NewCache(100), nil)
//	gate, _ := fluxgate.New(store, caching, fluxgate.Config{DefaultRuleSetID: "api"})
//
//	mux := http.NewServeMux()
//	mux.Handle("/", gate.Middleware(appHandler))
//
// Rate limiting fails open: when the store or the rule repository is
// unreachable the request is admitted and the failure is logged under the
// request's trace id.
package fluxgate
