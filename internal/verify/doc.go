// Package verify confirms a deployment through externally observable
// signals.
//
// Verifier probes the health endpoint of a deployed service with a bounded
// retry policy. Checker runs the named postconditions declared in a spec:
// http_get, ssl_verify and dns_lookup. Unknown check types are reported as
// WARN rather than skipped silently, and a result set only counts as passed
// when at least one check passed and none failed.
package verify
