package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsCarryRetryability(t *testing.T) {
	assert.True(t, InvalidDomain("bad").Retryable)
	assert.True(t, InvalidEntity("x").Retryable)
	assert.True(t, InvalidField("x", []string{"a"}).Retryable)
	assert.True(t, InvalidMethod("bad").Retryable)
	assert.True(t, Transport(errors.New("down")).Retryable)
	assert.True(t, Upstream("rejected").Retryable)
	assert.False(t, AuthFailed("denied").Retryable, "credentials do not become valid on retry")
	assert.False(t, Unknown(errors.New("boom")).Retryable)
}

func TestInvalidField_ReportsAllMissing(t *testing.T) {
	err := InvalidField("res.partner", []string{"missing1", "missing2"})
	assert.Contains(t, err.Message, "missing1")
	assert.Contains(t, err.Message, "missing2")
}

func TestClassify_PassesThroughClassified(t *testing.T) {
	orig := AuthFailed("denied")
	wrapped := fmt.Errorf("call failed: %w", orig)

	got := Classify(wrapped)
	assert.Same(t, orig, got, "an already-classified error is never re-classified")
}

func TestClassify_TransportErrors(t *testing.T) {
	cases := []error{
		context.DeadlineExceeded,
		&net.OpError{Op: "dial", Err: errors.New("connection refused")},
		&timeoutErr{},
		errors.New("read tcp 10.0.0.1:443: connection reset by peer"),
		errors.New("dial tcp: lookup odoo.internal: no such host"),
	}
	for _, err := range cases {
		got := Classify(err)
		assert.Equal(t, KindTransport, got.Kind, "error: %v", err)
		assert.True(t, got.Retryable)
	}
}

func TestClassify_UnmatchedIsUnknown(t *testing.T) {
	got := Classify(errors.New("something odd happened"))
	assert.Equal(t, KindUnknown, got.Kind)
	assert.False(t, got.Retryable)
}

func TestFromUpstream_NarrowsKnownMessages(t *testing.T) {
	cases := []struct {
		msg  string
		kind Kind
	}{
		{"Invalid field 'foo' on model 'res.partner'", KindInvalidField},
		{"Object res.prtner doesn't exist", KindInvalidEntity},
		{"Invalid leaf ('name', 'like')", KindInvalidDomain},
		{"type object 'res.partner' has no attribute 'frobnicate'", KindInvalidMethod},
		{"Access Denied", KindAuthFailed},
	}
	for _, tc := range cases {
		got := FromUpstream(tc.msg)
		assert.Equal(t, tc.kind, got.Kind, "message: %s", tc.msg)
	}
}

func TestFromUpstream_FallsBackToUpstreamFault(t *testing.T) {
	// The substring matching is best-effort; arbitrary rejection text
	// stays a generic upstream fault rather than guessing.
	got := FromUpstream("The operation cannot be completed: constraint violation")
	assert.Equal(t, KindUpstream, got.Kind)
	assert.True(t, got.Retryable)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transport(errors.New("down"))))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", Upstream("rejected"))))
	assert.False(t, IsRetryable(AuthFailed("denied")))
	assert.False(t, IsRetryable(errors.New("unclassified")))
}

func TestError_Format(t *testing.T) {
	err := InvalidEntity("res.prtner")
	require.Contains(t, err.Error(), "invalid_entity")
	require.Contains(t, err.Error(), "res.prtner")
}

type timeoutErr struct{}

func (*timeoutErr) Error() string { return "operation timed out" }
func (*timeoutErr) Timeout() bool { return true }
func (*timeoutErr) Temporary() bool { return true }

var _ net.Error = (*timeoutErr)(nil)
