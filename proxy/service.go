package proxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/fault"
	"github.com/jonwraymond/erpgate/observe"
	"github.com/jonwraymond/erpgate/validate"
)

// Upstream is the gateway surface the service calls. Implemented by
// gateway.Gateway.
type Upstream interface {
	Call(entity, method string, args []any, kwargs map[string]any) (any, error)
	ServerVersion() (map[string]any, error)
	ListDatabases() ([]string, error)
	RenderReport(report string, ids []int64, options map[string]any) (any, error)
}

// Info carries the static metadata stamped onto every envelope.
type Info struct {
	EntityVersion string
	EndpointMode  string
}

// Service wires Validator, Cache and Upstream behind the public
// operations. Construct one per process with explicit dependencies;
// tests construct fresh instances per case.
type Service struct {
	up     Upstream
	val    *validate.Validator
	cache  cache.Cache
	policy cache.Policy
	log    observe.Logger
	tracer trace.Tracer
	info   Info
}

// New creates a Service.
func New(up Upstream, val *validate.Validator, c cache.Cache, policy cache.Policy, info Info, log observe.Logger) *Service {
	if log == nil {
		log = observe.NopLogger{}
	}
	return &Service{
		up:     up,
		val:    val,
		cache:  c,
		policy: policy,
		log:    log,
		tracer: otel.Tracer("github.com/jonwraymond/erpgate/proxy"),
		info:   info,
	}
}

// Search returns the ids of records matching the filter.
func (s *Service) Search(ctx context.Context, entity string, filter validate.RawFilter, opts SearchOptions) Envelope {
	return s.run(ctx, "proxy.Search", entity, func(ctx context.Context) Envelope {
		domain, err := s.validateQuery(entity, filter, nil)
		if err != nil {
			return s.fail(err)
		}

		kwargs := searchKwargs(opts, nil)
		result, mark, err := s.throughCache("search", []any{entity, domain.Wire()}, kwargs, s.policy.DefaultTTL, func() (any, error) {
			return s.up.Call(entity, "search", []any{domain.Wire()}, kwargs)
		})
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, mark)
	})
}

// SearchRead searches and reads matching records in one call. The
// fields argument accepts a string list, a JSON-encoded list, or a
// comma-separated string.
func (s *Service) SearchRead(ctx context.Context, entity string, filter validate.RawFilter, fields any, opts SearchOptions) Envelope {
	return s.run(ctx, "proxy.SearchRead", entity, func(ctx context.Context) Envelope {
		projection, err := validate.NormalizeFields(fields)
		if err != nil {
			return s.fail(err)
		}
		domain, err := s.validateQuery(entity, filter, projection)
		if err != nil {
			return s.fail(err)
		}

		kwargs := searchKwargs(opts, projection)
		result, mark, err := s.throughCache("search_read", []any{entity, domain.Wire()}, kwargs, s.policy.DefaultTTL, func() (any, error) {
			return s.up.Call(entity, "search_read", []any{domain.Wire()}, kwargs)
		})
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, mark)
	})
}

// SearchCount counts records matching the filter.
func (s *Service) SearchCount(ctx context.Context, entity string, filter validate.RawFilter) Envelope {
	return s.run(ctx, "proxy.SearchCount", entity, func(ctx context.Context) Envelope {
		domain, err := s.validateQuery(entity, filter, nil)
		if err != nil {
			return s.fail(err)
		}

		result, mark, err := s.throughCache("search_count", []any{entity, domain.Wire()}, nil, s.policy.DefaultTTL, func() (any, error) {
			return s.up.Call(entity, "search_count", []any{domain.Wire()}, nil)
		})
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, mark)
	})
}

// Read fetches records by id. A scalar id input yields a scalar
// record; a list input yields a list.
func (s *Service) Read(ctx context.Context, entity string, ids IDs, fields any) Envelope {
	return s.run(ctx, "proxy.Read", entity, func(ctx context.Context) Envelope {
		projection, err := validate.NormalizeFields(fields)
		if err != nil {
			return s.fail(err)
		}
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}
		if err := s.val.Fields(entity, projection); err != nil {
			return s.fail(err)
		}

		kwargs := map[string]any{}
		if projection != nil {
			kwargs["fields"] = projection
		}
		result, mark, err := s.throughCache("read", []any{entity, ids.List()}, kwargs, s.policy.DefaultTTL, func() (any, error) {
			return s.up.Call(entity, "read", []any{idsToWire(ids.List())}, kwargs)
		})
		if err != nil {
			return s.fail(err)
		}
		return s.ok(unwrapScalar(result, ids.Scalar()), mark)
	})
}

// Create inserts one or more records. A scalar values input yields a
// scalar created id.
func (s *Service) Create(ctx context.Context, entity string, values Values) Envelope {
	return s.run(ctx, "proxy.Create", entity, func(ctx context.Context) Envelope {
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}
		for _, record := range values.List() {
			if err := s.val.Fields(entity, mapKeys(record)); err != nil {
				return s.fail(err)
			}
		}

		result, err := s.up.Call(entity, "create", []any{valuesToWire(values.List())}, nil)
		if err != nil {
			return s.fail(err)
		}
		s.invalidate(entity)
		return s.ok(unwrapScalar(result, values.Scalar()), "")
	})
}

// Update writes values onto the given records.
func (s *Service) Update(ctx context.Context, entity string, ids IDs, values map[string]any) Envelope {
	return s.run(ctx, "proxy.Update", entity, func(ctx context.Context) Envelope {
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}
		if err := s.val.Fields(entity, mapKeys(values)); err != nil {
			return s.fail(err)
		}

		result, err := s.up.Call(entity, "write", []any{idsToWire(ids.List()), values}, nil)
		if err != nil {
			return s.fail(err)
		}
		s.invalidate(entity)
		return s.ok(result, "")
	})
}

// Delete removes the given records.
func (s *Service) Delete(ctx context.Context, entity string, ids IDs) Envelope {
	return s.run(ctx, "proxy.Delete", entity, func(ctx context.Context) Envelope {
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}

		result, err := s.up.Call(entity, "unlink", []any{idsToWire(ids.List())}, nil)
		if err != nil {
			return s.fail(err)
		}
		s.invalidate(entity)
		return s.ok(result, "")
	})
}

// ExecuteMethod invokes an arbitrary method on an entity. Results are
// never cached: the method may have side effects.
func (s *Service) ExecuteMethod(ctx context.Context, entity, method string, args []any, kwargs map[string]any) Envelope {
	return s.run(ctx, "proxy.ExecuteMethod", entity, func(ctx context.Context) Envelope {
		if strings.TrimSpace(method) == "" {
			return s.fail(fault.InvalidMethod("method name is required"))
		}
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}

		result, err := s.up.Call(entity, method, args, kwargs)
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, "")
	})
}

// validateQuery runs the shared validation sequence for search-shaped
// operations: entity existence, domain shape, then field existence for
// every field referenced in clauses or the projection.
func (s *Service) validateQuery(entity string, filter validate.RawFilter, projection []string) (validate.Domain, error) {
	if err := s.val.Entity(entity); err != nil {
		return nil, err
	}
	domain, err := s.val.Domain(filter)
	if err != nil {
		return nil, err
	}

	referenced := append(domain.FieldNames(), projection...)
	if err := s.val.Fields(entity, referenced); err != nil {
		return nil, err
	}
	return domain, nil
}

// throughCache is the read-path short circuit: fingerprint, lookup,
// fetch on miss, store. Arguments the keyer cannot normalize make the
// call uncacheable and execute directly.
func (s *Service) throughCache(op string, args []any, kwargs map[string]any, ttl time.Duration, fetch func() (any, error)) (any, string, error) {
	key, err := cache.BuildKey(op, args, kwargs)
	if err != nil {
		s.log.Warn("uncacheable arguments, executing directly",
			observe.F("op", op), observe.F("reason", err.Error()))
		v, ferr := fetch()
		return v, "", ferr
	}

	if v, ok := s.cache.Get(key); ok {
		return v, CacheHit, nil
	}

	v, ferr := fetch()
	if ferr != nil {
		return nil, "", ferr
	}
	s.cache.Set(key, v, ttl)
	return v, CacheMiss, nil
}

// invalidate runs after a successful write. Individual cache keys are
// not tracked per entity, so invalidation is conservative: log only by
// default, whole-cache flush when the policy opts in. Without the
// flush, cached reads may stay stale until TTL expiry.
func (s *Service) invalidate(entity string) {
	s.log.Debug("write completed, invalidating cached reads", observe.F("entity", entity))
	if s.policy.FlushOnWrite {
		removed := s.cache.Clear()
		s.log.Info("cache flushed after write",
			observe.F("entity", entity), observe.F("removed", removed))
	}
}

// run wraps an operation with a span and a panic guard.
func (s *Service) run(ctx context.Context, op, entity string, fn func(ctx context.Context) Envelope) (env Envelope) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("entity", entity)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in proxy operation", observe.F("op", op), observe.F("panic", fmt.Sprint(r)))
			env = s.fail(fault.Unknown(fmt.Errorf("panic in %s: %v", op, r)))
			span.SetStatus(codes.Error, env.Err.Message)
		}
	}()

	env = fn(ctx)
	if !env.OK && env.Err != nil {
		span.SetStatus(codes.Error, env.Err.Message)
		span.SetAttributes(attribute.String("fault.kind", string(env.Err.Kind)))
	}
	return env
}

func (s *Service) ok(data any, cacheMark string) Envelope {
	return Envelope{
		OK:   true,
		Data: data,
		Meta: Meta{EntityVersion: s.info.EntityVersion, EndpointMode: s.info.EndpointMode, Cache: cacheMark},
	}
}

func (s *Service) fail(err error) Envelope {
	fe := fault.Classify(err)
	s.log.Warn("operation failed",
		observe.F("kind", string(fe.Kind)), observe.F("error", fe.Message))
	return Envelope{
		OK:   false,
		Err:  fe,
		Meta: Meta{EntityVersion: s.info.EntityVersion, EndpointMode: s.info.EndpointMode},
	}
}

func searchKwargs(opts SearchOptions, projection []string) map[string]any {
	kwargs := map[string]any{"offset": opts.Offset}
	if projection != nil {
		kwargs["fields"] = projection
	}
	if opts.Limit > 0 {
		kwargs["limit"] = opts.Limit
	}
	if opts.Order != "" {
		kwargs["order"] = opts.Order
	}
	return kwargs
}

func unwrapScalar(result any, scalar bool) any {
	if !scalar {
		return result
	}
	if list, ok := result.([]any); ok && len(list) > 0 {
		return list[0]
	}
	return result
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
