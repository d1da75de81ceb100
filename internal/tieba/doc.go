// Package tieba implements the authenticated client for the Tieba forum
// platform: credential validation, followed-forum enumeration, security
// token (tbs) retrieval, and the daily per-forum check-in.
//
// Every outbound call goes through the retry policy in internal/retry and,
// when configured, a circuit breaker guarding the platform as a whole.
package tieba
