// Package gateway wraps the upstream RPC channel.
//
// It authenticates with a cached token, executes remote methods, and
// classifies every transport or upstream failure into a typed fault
// before it reaches callers. The cache lock is never held while an
// upstream call is in flight.
package gateway
