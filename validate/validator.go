package validate

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/fault"
	"github.com/jonwraymond/erpgate/observe"
)

// BootstrapEntity enumerates the entities themselves. It is exempt
// from entity validation: validating it would require fetching the
// entity list, which is fetched through it.
const BootstrapEntity = "ir.model"

// entityListKey caches the full entity list.
const entityListKey = "model_list"

// Caller executes an authenticated upstream method call. Implemented
// by gateway.Gateway.
type Caller interface {
	Call(entity, method string, args []any, kwargs map[string]any) (any, error)
}

// Validator checks entity names, field names and domain shapes against
// upstream metadata.
//
// Contract:
// - Concurrency: safe for concurrent use; identical in-flight metadata
//   fetches collapse into one upstream call.
// - Errors from validation are already classified fault errors.
type Validator struct {
	caller Caller
	cache  cache.Cache
	ttl    time.Duration
	log    observe.Logger
	group  singleflight.Group
}

// New creates a Validator. metadataTTL bounds how long entity lists
// and field definitions stay cached.
func New(caller Caller, c cache.Cache, metadataTTL time.Duration, log observe.Logger) *Validator {
	if log == nil {
		log = observe.NopLogger{}
	}
	return &Validator{caller: caller, cache: c, ttl: metadataTTL, log: log}
}

// Entities returns the full entity list records (model, name,
// transient). The bool reports whether the list came from cache.
func (v *Validator) Entities() ([]map[string]any, bool, error) {
	if cached, ok := v.cache.Get(entityListKey); ok {
		if list, ok := cached.([]map[string]any); ok {
			return list, true, nil
		}
	}

	res, err, _ := v.group.Do(entityListKey, func() (any, error) {
		raw, err := v.caller.Call(BootstrapEntity, "search_read",
			[]any{[]any{}},
			map[string]any{"fields": []string{"model", "name", "transient"}})
		if err != nil {
			return nil, err
		}
		list := toRecordList(raw)
		v.cache.Set(entityListKey, list, v.ttl)
		return list, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.([]map[string]any), false, nil
}

// FieldDefs returns the field definition map for an entity, optionally
// restricted to specific fields or attributes. The bool reports a
// cache hit.
func (v *Validator) FieldDefs(entity string, fields, attributes []string) (map[string]any, bool, error) {
	kwargs := map[string]any{}
	if fields != nil {
		kwargs["allfields"] = fields
	}
	if attributes != nil {
		kwargs["attributes"] = attributes
	}

	key, err := cache.BuildKey("fields_get", []any{entity}, kwargs)
	if err != nil {
		return nil, false, fault.Classify(err)
	}

	if cached, ok := v.cache.Get(key); ok {
		if defs, ok := cached.(map[string]any); ok {
			return defs, true, nil
		}
	}

	res, ferr, _ := v.group.Do(key, func() (any, error) {
		raw, err := v.caller.Call(entity, "fields_get", nil, kwargs)
		if err != nil {
			return nil, err
		}
		defs, _ := raw.(map[string]any)
		if defs == nil {
			defs = map[string]any{}
		}
		v.cache.Set(key, defs, v.ttl)
		return defs, nil
	})
	if ferr != nil {
		return nil, false, ferr
	}
	return res.(map[string]any), false, nil
}

// Entity fails with an invalid-entity fault when name is not a known
// entity. The bootstrap entity is exempt.
func (v *Validator) Entity(name string) error {
	if name == BootstrapEntity {
		return nil
	}

	list, _, err := v.Entities()
	if err != nil {
		return err
	}
	for _, rec := range list {
		if rec["model"] == name {
			return nil
		}
	}
	return fault.InvalidEntity(name)
}

// Fields fails with an invalid-field fault naming every unknown field
// at once. A nil or empty field list is a no-op.
func (v *Validator) Fields(entity string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}

	defs, _, err := v.FieldDefs(entity, nil, nil)
	if err != nil {
		return err
	}

	var missing []string
	for _, f := range fields {
		if _, ok := defs[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fault.InvalidField(entity, missing)
	}
	return nil
}

// Domain resolves and shape-checks a raw filter.
func (v *Validator) Domain(f RawFilter) (Domain, error) {
	return NormalizeDomain(f)
}

// toRecordList coerces the wire shape ([]any of map[string]any) into
// typed records, dropping anything else.
func toRecordList(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
