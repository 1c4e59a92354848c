package health

import (
	"time"

	"github.com/jonwraymond/erpgate/cache"
)

// Status represents overall service health.
type Status string

const (
	// StatusOK indicates the upstream is reachable and authenticated.
	StatusOK Status = "ok"
	// StatusDegraded indicates the service runs but the upstream is
	// unreachable or rejecting authentication.
	StatusDegraded Status = "degraded"
)

// Report is the outcome of a health check.
type Report struct {
	Status            Status        `json:"status"`
	UpstreamConnected bool          `json:"upstreamConnected"`
	Error             string        `json:"error,omitempty"`
	Cache             cache.Stats   `json:"cache"`
	Duration          time.Duration `json:"duration"`
	Timestamp         time.Time     `json:"timestamp"`
}

// Pinger performs the upstream round-trip used as the liveness probe.
// Implemented by gateway.Gateway via Authenticate.
type Pinger interface {
	Authenticate() (int64, error)
}

// Checker probes the gateway and reports cache state alongside.
type Checker struct {
	pinger Pinger
	cache  cache.Cache
}

// NewChecker creates a Checker.
func NewChecker(pinger Pinger, c cache.Cache) *Checker {
	return &Checker{pinger: pinger, cache: c}
}

// Check authenticates against the upstream. The token cache makes
// repeated checks cheap: only the first check within the auth TTL
// costs a network round-trip.
func (c *Checker) Check() Report {
	start := time.Now()
	report := Report{
		Status:            StatusOK,
		UpstreamConnected: true,
		Cache:             c.cache.Stats(),
		Timestamp:         start,
	}

	if _, err := c.pinger.Authenticate(); err != nil {
		report.Status = StatusDegraded
		report.UpstreamConnected = false
		report.Error = err.Error()
	}

	report.Duration = time.Since(start)
	return report
}
