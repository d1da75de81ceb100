// Package retry implements the bounded-retry, escalating-backoff policy that
// governs every outbound call to the forum platform.
//
// Failures are classified by the HTTP status code the transport reports:
// 429 responses are retried with doubled backoff escalation, other 4xx
// responses are terminal, and everything else (network errors, 5xx,
// timeouts, payload validation errors) is retried with plain escalation.
// Each invocation owns its own attempt counter and delay; state is never
// shared between concurrent invocations.
package retry
