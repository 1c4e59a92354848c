package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

// Transport is the remote-procedure channel to the upstream system.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Timeouts: each call is bounded by a fixed per-request timeout
//   inside the implementation; there is no mid-flight cancellation.
// - Errors are returned raw; classification happens in Gateway.
type Transport interface {
	// Authenticate resolves credentials to a user id. A zero id with a
	// nil error means the upstream rejected the credentials.
	Authenticate(db, username, credential string) (int64, error)

	// ExecuteKw invokes a method on an entity.
	ExecuteKw(db string, uid int64, credential, entity, method string, args []any, kwargs map[string]any) (any, error)

	// ServerVersion returns upstream version metadata.
	ServerVersion() (map[string]any, error)

	// ListDatabases lists databases on the upstream instance.
	ListDatabases() ([]string, error)

	// RenderReport renders a report for the given record ids.
	RenderReport(db string, uid int64, credential, report string, ids []int64, options map[string]any) (any, error)
}

// EndpointConfig configures the XML-RPC transport.
type EndpointConfig struct {
	// URL is the upstream base URL (scheme + host).
	URL string
	// Timeout bounds each request.
	Timeout time.Duration
	// VerifySSL controls certificate verification. Disable for
	// development endpoints only.
	VerifySSL bool
}

// XMLRPCTransport talks to the upstream /xmlrpc/2 endpoint set.
type XMLRPCTransport struct {
	common *xmlrpc.Client
	object *xmlrpc.Client
	db     *xmlrpc.Client
	report *xmlrpc.Client
}

// NewXMLRPC creates a transport for the four upstream endpoints.
func NewXMLRPC(cfg EndpointConfig) (*XMLRPCTransport, error) {
	base := strings.TrimRight(cfg.URL, "/")
	rt := &timeoutRoundTripper{
		rt: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
		},
		timeout: cfg.Timeout,
	}

	t := &XMLRPCTransport{}
	for _, ep := range []struct {
		path   string
		client **xmlrpc.Client
	}{
		{"/xmlrpc/2/common", &t.common},
		{"/xmlrpc/2/object", &t.object},
		{"/xmlrpc/2/db", &t.db},
		{"/xmlrpc/2/report", &t.report},
	} {
		c, err := xmlrpc.NewClient(base+ep.path, rt)
		if err != nil {
			return nil, fmt.Errorf("gateway: endpoint %s: %w", ep.path, err)
		}
		*ep.client = c
	}
	return t, nil
}

func (t *XMLRPCTransport) Authenticate(db, username, credential string) (int64, error) {
	var reply any
	err := t.common.Call("authenticate", []any{db, username, credential, map[string]any{}}, &reply)
	if err != nil {
		return 0, err
	}
	// The upstream returns the numeric uid on success and boolean
	// false on bad credentials.
	switch v := reply.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, nil
	}
}

func (t *XMLRPCTransport) ExecuteKw(db string, uid int64, credential, entity, method string, args []any, kwargs map[string]any) (any, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	var reply any
	err := t.object.Call("execute_kw", []any{db, uid, credential, entity, method, args, kwargs}, &reply)
	return reply, err
}

func (t *XMLRPCTransport) ServerVersion() (map[string]any, error) {
	var reply any
	if err := t.common.Call("version", nil, &reply); err != nil {
		return nil, err
	}
	info, _ := reply.(map[string]any)
	return info, nil
}

func (t *XMLRPCTransport) ListDatabases() ([]string, error) {
	var reply any
	if err := t.db.Call("list", nil, &reply); err != nil {
		return nil, err
	}
	items, _ := reply.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *XMLRPCTransport) RenderReport(db string, uid int64, credential, report string, ids []int64, options map[string]any) (any, error) {
	if options == nil {
		options = map[string]any{}
	}
	var reply any
	err := t.report.Call("render_report", []any{db, uid, credential, report, ids, options}, &reply)
	return reply, err
}

// timeoutRoundTripper bounds each request with a fixed timeout. The
// context is cancelled when the response body is closed.
type timeoutRoundTripper struct {
	rt      http.RoundTripper
	timeout time.Duration
}

func (t *timeoutRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.rt.RoundTrip(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.rt.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// Ensure XMLRPCTransport implements Transport
var _ Transport = (*XMLRPCTransport)(nil)
