// Package fluxerr carries the closed failure taxonomy used across FluxGate.
//
// Instead of a deep exception hierarchy, failures are tagged with a Kind and
// a retryable flag. Callers classify with KindOf and IsRetryable and decide
// policy locally: the request path fails open, the admin notification path
// logs and succeeds, reload listeners contain errors per listener.
package fluxerr
