package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Kind identifies a failure class.
type Kind string

const (
	KindInvalidDomain Kind = "invalid_domain"
	KindInvalidEntity Kind = "invalid_entity"
	KindInvalidField  Kind = "invalid_field"
	KindInvalidMethod Kind = "invalid_method"
	KindAuthFailed    Kind = "auth_failed"
	KindTransport     Kind = "transport_error"
	KindUpstream      Kind = "upstream_fault"
	KindUnknown       Kind = "unknown"
)

// Error is a classified failure. It is constructed once and never
// mutated afterwards.
//
// Contract:
// - Retryable means the call may succeed after the caller corrects the
//   input or the transient condition clears; it does not imply the core
//   retries anything itself.
type Error struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// InvalidDomain reports a malformed domain filter.
func InvalidDomain(msg string) *Error {
	return &Error{
		Kind:      KindInvalidDomain,
		Message:   msg,
		Hint:      "a domain is a list of [field, operator, value] triples; an empty list matches all records",
		Retryable: true,
	}
}

// InvalidEntity reports an unknown entity name.
func InvalidEntity(name string) *Error {
	return &Error{
		Kind:      KindInvalidEntity,
		Message:   fmt.Sprintf("entity %q does not exist", name),
		Hint:      "use the list-entities operation to discover valid entity names, then retry",
		Retryable: true,
	}
}

// InvalidField reports every unknown field in one error.
func InvalidField(entity string, missing []string) *Error {
	return &Error{
		Kind:      KindInvalidField,
		Message:   fmt.Sprintf("unknown fields on %s: %s", entity, strings.Join(missing, ", ")),
		Hint:      "use the entity-fields operation to inspect valid fields before retrying",
		Retryable: true,
	}
}

// InvalidMethod reports a missing or rejected method name.
func InvalidMethod(msg string) *Error {
	return &Error{
		Kind:      KindInvalidMethod,
		Message:   msg,
		Hint:      "check the method name against the entity's public methods and retry",
		Retryable: true,
	}
}

// AuthFailed reports an authentication rejection. Not retryable:
// credentials do not become valid without external intervention.
func AuthFailed(msg string) *Error {
	return &Error{
		Kind:      KindAuthFailed,
		Message:   msg,
		Hint:      "verify the configured username, credential and database identifier",
		Retryable: false,
	}
}

// Transport reports a transport-level failure (connection refused,
// timeout, protocol error).
func Transport(err error) *Error {
	return &Error{
		Kind:      KindTransport,
		Message:   err.Error(),
		Hint:      "the upstream endpoint did not respond; check connectivity and retry",
		Retryable: true,
	}
}

// Upstream reports a business-rule rejection by the remote system.
func Upstream(msg string) *Error {
	return &Error{
		Kind:      KindUpstream,
		Message:   msg,
		Hint:      "the upstream rejected the call; inspect the message and adjust the request",
		Retryable: true,
	}
}

// Unknown wraps an unclassifiable failure.
func Unknown(err error) *Error {
	return &Error{
		Kind:      KindUnknown,
		Message:   err.Error(),
		Retryable: false,
	}
}

// New constructs an Error of the given kind with the kind's default
// hint and retryability.
func New(kind Kind, msg string) *Error {
	switch kind {
	case KindInvalidDomain:
		return InvalidDomain(msg)
	case KindInvalidEntity:
		return &Error{Kind: kind, Message: msg, Hint: "use the list-entities operation to discover valid entity names, then retry", Retryable: true}
	case KindInvalidField:
		return &Error{Kind: kind, Message: msg, Hint: "use the entity-fields operation to inspect valid fields before retrying", Retryable: true}
	case KindInvalidMethod:
		return InvalidMethod(msg)
	case KindAuthFailed:
		return AuthFailed(msg)
	case KindUpstream:
		return Upstream(msg)
	default:
		return &Error{Kind: KindUnknown, Message: msg}
	}
}

// upstreamHints maps known substrings of upstream rejection text to a
// narrower kind. Matching is case-insensitive and best-effort; false
// negatives fall through to KindUpstream.
var upstreamHints = []struct {
	substr string
	kind   func(msg string) *Error
}{
	{"invalid field", func(m string) *Error { return &Error{Kind: KindInvalidField, Message: m, Hint: "use the entity-fields operation to inspect valid fields before retrying", Retryable: true} }},
	{"unknown field", func(m string) *Error { return &Error{Kind: KindInvalidField, Message: m, Hint: "use the entity-fields operation to inspect valid fields before retrying", Retryable: true} }},
	{"does not exist on model", func(m string) *Error { return &Error{Kind: KindInvalidField, Message: m, Hint: "use the entity-fields operation to inspect valid fields before retrying", Retryable: true} }},
	{"object does not exist", func(m string) *Error { return &Error{Kind: KindInvalidEntity, Message: m, Hint: "use the list-entities operation to discover valid entity names, then retry", Retryable: true} }},
	{"doesn't exist", func(m string) *Error { return &Error{Kind: KindInvalidEntity, Message: m, Hint: "use the list-entities operation to discover valid entity names, then retry", Retryable: true} }},
	{"invalid domain", func(m string) *Error { return InvalidDomain(m) }},
	{"invalid leaf", func(m string) *Error { return InvalidDomain(m) }},
	{"has no attribute", func(m string) *Error { return InvalidMethod(m) }},
	{"invalid method", func(m string) *Error { return InvalidMethod(m) }},
	{"access denied", func(m string) *Error { return AuthFailed(m) }},
	{"accessdenied", func(m string) *Error { return AuthFailed(m) }},
}

// FromUpstream classifies a rejection message from the remote system.
// Unmatched text yields KindUpstream.
func FromUpstream(msg string) *Error {
	lower := strings.ToLower(msg)
	for _, h := range upstreamHints {
		if strings.Contains(lower, h.substr) {
			return h.kind(msg)
		}
	}
	return Upstream(msg)
}

// Classify converts an arbitrary error into an *Error. An error that
// is already classified is returned unchanged, never re-classified.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if isTransport(err) {
		return Transport(err)
	}

	return Unknown(err)
}

// IsRetryable reports whether the error carries a retryable
// classification. Unclassified errors report false.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "timeout", "timed out", "no such host", "unexpected eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

var _ error = (*Error)(nil)
