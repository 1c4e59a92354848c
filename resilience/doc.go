// Package resilience provides an opt-in retry wrapper for callers of
// the proxy.
//
// The proxy core never retries; retry policy belongs to the caller,
// informed by the retryable flag on classified faults. The default
// RetryIf consults exactly that flag.
package resilience
