package proxy

import "github.com/jonwraymond/erpgate/fault"

// Cache markers recorded in envelope metadata on read-path operations.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Meta is the metadata block attached to every envelope.
type Meta struct {
	EntityVersion string `json:"entityVersion"`
	EndpointMode  string `json:"endpointMode"`
	Cache         string `json:"cache,omitempty"`
}

// Envelope is the uniform response wrapper returned by every public
// operation.
type Envelope struct {
	OK   bool         `json:"ok"`
	Data any          `json:"data"`
	Err  *fault.Error `json:"error,omitempty"`
	Meta Meta         `json:"meta"`
}
