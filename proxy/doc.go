// Package proxy orchestrates validation, caching and the upstream
// gateway behind every public operation.
//
// Each operation validates its inputs, consults the fingerprint cache
// on the read path, and returns a uniform envelope. No error or panic
// crosses the service boundary uncaught.
package proxy
