// Package adminapi exposes the operational HTTP surface of a gate: rule
// set inspection, cache statistics, health probes and manual reload
// triggers. Mount the router behind operator-only auth; it carries none of
// its own.
package adminapi
