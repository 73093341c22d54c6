// Package retry provides bounded retry and polling for calls against remote
// control planes.
//
// [Policy] is a value object describing how often and for how long an
// operation may be attempted. The same policy type drives one-shot retries
// ([Policy.Do]) and readiness polling ([Policy.Poll]) such as waiting for a
// DNS zone to activate or a deployment to finish. The platform clients use
// [Policy.Do] for rate-limited and 5xx responses; [Fatal] marks errors that
// must not be retried.
package retry
