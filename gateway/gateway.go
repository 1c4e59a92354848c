package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/fault"
	"github.com/jonwraymond/erpgate/observe"
)

// Config identifies the upstream session the gateway authenticates.
type Config struct {
	Database   string
	Username   string
	Credential string

	// AuthTTL bounds how long an authenticated token stays cached.
	// Defaults to one hour.
	AuthTTL time.Duration
}

// Gateway is the authenticated wrapper over Transport. The resolved
// identity is memoized on the instance, independent of whether the
// shared result cache is enabled; the cache carries a copy under the
// auth key so embedders can address it.
type Gateway struct {
	transport Transport
	cache     cache.Cache
	log       observe.Logger
	cfg       Config

	mu       sync.Mutex
	uid      int64
	uidUntil time.Time
}

// New creates a Gateway.
func New(transport Transport, c cache.Cache, cfg Config, log observe.Logger) *Gateway {
	if cfg.AuthTTL <= 0 {
		cfg.AuthTTL = time.Hour
	}
	if log == nil {
		log = observe.NopLogger{}
	}
	return &Gateway{transport: transport, cache: c, log: log, cfg: cfg}
}

// Authenticate returns the memoized token when present and unexpired,
// otherwise calls the remote authenticate procedure. The memo is never
// held across the upstream call; concurrent first calls may each
// authenticate once, which is harmless.
func (g *Gateway) Authenticate() (int64, error) {
	g.mu.Lock()
	if g.uid != 0 && time.Now().Before(g.uidUntil) {
		uid := g.uid
		g.mu.Unlock()
		g.log.Debug("using cached authentication", observe.F("uid", uid))
		return uid, nil
	}
	g.mu.Unlock()

	uid, err := g.transport.Authenticate(g.cfg.Database, g.cfg.Username, g.cfg.Credential)
	if err != nil {
		return 0, g.classify(err)
	}
	if uid == 0 {
		return 0, fault.AuthFailed("authentication failed, check your credentials")
	}

	g.mu.Lock()
	g.uid = uid
	g.uidUntil = time.Now().Add(g.cfg.AuthTTL)
	g.mu.Unlock()

	g.cache.Set(cache.AuthKey(g.cfg.Username, g.cfg.Database), uid, g.cfg.AuthTTL)
	g.log.Info("authenticated with upstream", observe.F("uid", uid))
	return uid, nil
}

// Call authenticates and executes a method on an entity. Any failure
// comes back as a classified fault.
func (g *Gateway) Call(entity, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := g.Authenticate()
	if err != nil {
		return nil, err
	}

	g.log.Debug("executing upstream method",
		observe.F("entity", entity), observe.F("method", method))

	result, err := g.transport.ExecuteKw(g.cfg.Database, uid, g.cfg.Credential, entity, method, args, kwargs)
	if err != nil {
		return nil, g.classify(err)
	}
	return result, nil
}

// ServerVersion returns upstream version metadata.
func (g *Gateway) ServerVersion() (map[string]any, error) {
	info, err := g.transport.ServerVersion()
	if err != nil {
		return nil, g.classify(err)
	}
	return info, nil
}

// ListDatabases lists databases on the upstream instance.
func (g *Gateway) ListDatabases() ([]string, error) {
	dbs, err := g.transport.ListDatabases()
	if err != nil {
		return nil, g.classify(err)
	}
	return dbs, nil
}

// RenderReport authenticates and renders a report.
func (g *Gateway) RenderReport(report string, ids []int64, options map[string]any) (any, error) {
	uid, err := g.Authenticate()
	if err != nil {
		return nil, err
	}
	result, err := g.transport.RenderReport(g.cfg.Database, uid, g.cfg.Credential, report, ids, options)
	if err != nil {
		return nil, g.classify(err)
	}
	return result, nil
}

// classify maps a raw transport error to a fault exactly once. An
// upstream fault payload is narrowed by its rejection text; everything
// else goes through the generic transport classifier.
func (g *Gateway) classify(err error) *fault.Error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return fe
	}
	var xf xmlrpc.FaultError
	if errors.As(err, &xf) {
		return fault.FromUpstream(xf.String)
	}
	return fault.Classify(err)
}
