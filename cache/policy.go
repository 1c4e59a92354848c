package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// Enabled turns the cache on. When false, Get and Set are no-ops.
	Enabled bool

	// DefaultTTL applies to result entries stored without an explicit TTL.
	DefaultTTL time.Duration

	// MetadataTTL applies to entity lists and field definitions, which
	// change rarely.
	MetadataTTL time.Duration

	// AuthTTL applies to cached authentication tokens, independent of
	// the general TTL policy.
	AuthTTL time.Duration

	// MaxSize bounds the number of resident entries.
	MaxSize int

	// FlushOnWrite clears the whole cache after a successful write
	// operation. By default writes only log; cached reads may stay
	// stale until TTL expiry.
	FlushOnWrite bool
}

// DefaultPolicy returns the default caching policy:
// enabled, 5 minute result TTL, 1 hour metadata and auth TTLs,
// 1000 entries, no flush on write.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:     true,
		DefaultTTL:  5 * time.Minute,
		MetadataTTL: time.Hour,
		AuthTTL:     time.Hour,
		MaxSize:     1000,
	}
}

// NoCachePolicy returns a policy with caching disabled entirely.
func NoCachePolicy() Policy {
	p := DefaultPolicy()
	p.Enabled = false
	return p
}
