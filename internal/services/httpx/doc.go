// Package httpx holds the retry and status-error plumbing shared by the
// language-model and speech-synthesis HTTP clients.
//
// Retries apply to HTTP 408/429/5xx responses and network timeouts with
// exponential backoff (base 1s, max 10s by default). Retry-After headers are
// honoured up to the max delay. Context cancellation aborts retries immediately.
package httpx
