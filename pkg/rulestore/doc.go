// Package rulestore provides durable persistence for rate limit rules.
//
// Repository is the storage contract the rule-set provider and the admin
// surface consume: lookups by rule set, upserts keyed by rule id, and bulk
// deletes. Four backends implement it:
//
//   - MongoRepository stores rule documents in a MongoDB collection and is
//     the production default.
//   - PostgresRepository keeps rules as JSONB rows; its schema ships as
//     embedded goose migrations.
//   - FileRepository reads and atomically rewrites a YAML file, suited to
//     GitOps-style static rule sets.
//   - MemoryRepository backs tests and embedded single-node setups.
//
// Reads are point-in-time consistent within one call and return rules sorted
// by id; cross-call ordering is not guaranteed. Absence is reported as
// ErrNotFound. Infrastructure failures carry the fluxerr taxonomy: transport
// problems are retryable store-connection errors, undecodable documents are
// serialization errors and fail only the call at hand.
package rulestore
