package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 1024

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache is the interface for caching proxy results.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Values are opaque once stored; callers must not mutate a value
//   returned by Get in place.
// - Get never errors; it returns (nil, false) on miss.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss,
	// on expiry, and always when caching is disabled.
	Get(key string) (any, bool)

	// Set stores a value with the given TTL. TTL <= 0 means the entry
	// never expires. No-op when caching is disabled.
	Set(key string, value any, ttl time.Duration)

	// Delete removes one entry. Reports whether an entry was present.
	Delete(key string) bool

	// Clear removes all entries and returns the count removed.
	Clear() int

	// Stats returns a point-in-time snapshot after a sweep.
	Stats() Stats
}

// Stats is a point-in-time cache snapshot.
type Stats struct {
	Enabled bool          `json:"enabled"`
	Size    int           `json:"size"`
	MaxSize int           `json:"maxSize"`
	TTL     time.Duration `json:"ttl"`
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
