// Package cache provides the TTL-bounded result cache and the
// deterministic fingerprint keys the proxy stores results under.
//
// Eviction is by creation time only: a frequently read entry is not
// protected, only insertion recency matters. This is an approximation
// of LRU, kept intentionally.
package cache
