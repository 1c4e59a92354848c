package proxy

import (
	"context"
	"strings"
)

// ListEntities returns the known entities, optionally including
// transient ones and filtering by a case-insensitive search term.
func (s *Service) ListEntities(ctx context.Context, includeTransient bool, search string) Envelope {
	return s.run(ctx, "proxy.ListEntities", "", func(ctx context.Context) Envelope {
		list, hit, err := s.val.Entities()
		if err != nil {
			return s.fail(err)
		}

		term := strings.ToLower(search)
		filtered := make([]map[string]any, 0, len(list))
		for _, rec := range list {
			if !includeTransient {
				if transient, _ := rec["transient"].(bool); transient {
					continue
				}
			}
			if term != "" {
				name, _ := rec["name"].(string)
				model, _ := rec["model"].(string)
				if !strings.Contains(strings.ToLower(model), term) && !strings.Contains(strings.ToLower(name), term) {
					continue
				}
			}
			filtered = append(filtered, rec)
		}

		return s.ok(map[string]any{"entities": filtered, "count": len(filtered)}, cacheMark(hit))
	})
}

// EntityFields returns field definitions for an entity, optionally
// restricted to specific fields or definition attributes.
func (s *Service) EntityFields(ctx context.Context, entity string, fields, attributes []string) Envelope {
	return s.run(ctx, "proxy.EntityFields", entity, func(ctx context.Context) Envelope {
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}

		defs, hit, err := s.val.FieldDefs(entity, fields, attributes)
		if err != nil {
			return s.fail(err)
		}
		return s.ok(map[string]any{"fields": defs, "count": len(defs)}, cacheMark(hit))
	})
}

// EntityInfo returns a summary of an entity: its display name,
// transience and field definitions.
func (s *Service) EntityInfo(ctx context.Context, entity string) Envelope {
	return s.run(ctx, "proxy.EntityInfo", entity, func(ctx context.Context) Envelope {
		if err := s.val.Entity(entity); err != nil {
			return s.fail(err)
		}

		list, hit, err := s.val.Entities()
		if err != nil {
			return s.fail(err)
		}
		var record map[string]any
		for _, rec := range list {
			if rec["model"] == entity {
				record = rec
				break
			}
		}

		defs, _, err := s.val.FieldDefs(entity, nil, nil)
		if err != nil {
			return s.fail(err)
		}

		info := map[string]any{
			"entity":     entity,
			"fields":     defs,
			"fieldCount": len(defs),
		}
		if record != nil {
			info["name"] = record["name"]
			info["transient"], _ = record["transient"].(bool)
		}
		return s.ok(info, cacheMark(hit))
	})
}

// ServerInfo returns upstream version metadata.
func (s *Service) ServerInfo(ctx context.Context) Envelope {
	return s.run(ctx, "proxy.ServerInfo", "", func(ctx context.Context) Envelope {
		result, mark, err := s.throughCache("server_info", nil, nil, s.policy.MetadataTTL, func() (any, error) {
			return s.up.ServerVersion()
		})
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, mark)
	})
}

// ListDatabases lists databases on the upstream instance. Not cached:
// it is an administrative call and database sets change out of band.
func (s *Service) ListDatabases(ctx context.Context) Envelope {
	return s.run(ctx, "proxy.ListDatabases", "", func(ctx context.Context) Envelope {
		dbs, err := s.up.ListDatabases()
		if err != nil {
			return s.fail(err)
		}
		return s.ok(dbs, "")
	})
}

// RenderReport renders a report for the given records. Never cached:
// report output depends on live record state.
func (s *Service) RenderReport(ctx context.Context, report string, ids IDs, options map[string]any) Envelope {
	return s.run(ctx, "proxy.RenderReport", "", func(ctx context.Context) Envelope {
		result, err := s.up.RenderReport(report, ids.List(), options)
		if err != nil {
			return s.fail(err)
		}
		return s.ok(result, "")
	})
}

// CacheStats returns a point-in-time snapshot of the result cache.
func (s *Service) CacheStats(ctx context.Context) Envelope {
	return s.run(ctx, "proxy.CacheStats", "", func(ctx context.Context) Envelope {
		return s.ok(s.cache.Stats(), "")
	})
}

func cacheMark(hit bool) string {
	if hit {
		return CacheHit
	}
	return CacheMiss
}
