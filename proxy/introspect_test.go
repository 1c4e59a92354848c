package proxy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/fault"
	"github.com/jonwraymond/erpgate/validate"
)

func TestService_ListEntitiesFiltersTransient(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())
	ctx := context.Background()

	env := svc.ListEntities(ctx, false, "")
	require.True(t, env.OK, "error: %v", env.Err)
	data := env.Data.(map[string]any)
	assert.Equal(t, 2, data["count"], "transient entities excluded by default")

	env = svc.ListEntities(ctx, true, "")
	require.True(t, env.OK)
	assert.Equal(t, 3, env.Data.(map[string]any)["count"])
}

func TestService_ListEntitiesSearchTerm(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())

	env := svc.ListEntities(context.Background(), true, "sales")
	require.True(t, env.OK)
	data := env.Data.(map[string]any)
	require.Equal(t, 1, data["count"])
	entities := data["entities"].([]map[string]any)
	assert.Equal(t, "sale.order", entities[0]["model"])
}

func TestService_ListEntitiesCacheMarker(t *testing.T) {
	svc, ft := newStack(t, cache.DefaultPolicy())
	ctx := context.Background()

	env := svc.ListEntities(ctx, false, "")
	require.True(t, env.OK)
	assert.Equal(t, CacheMiss, env.Meta.Cache)

	env = svc.ListEntities(ctx, false, "")
	require.True(t, env.OK)
	assert.Equal(t, CacheHit, env.Meta.Cache)
	assert.Equal(t, 1, ft.count("ir.model.search_read"))
}

func TestService_EntityFields(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())

	env := svc.EntityFields(context.Background(), "res.partner", nil, nil)
	require.True(t, env.OK, "error: %v", env.Err)
	data := env.Data.(map[string]any)
	assert.Equal(t, 4, data["count"])

	defs := data["fields"].(map[string]any)
	assert.Contains(t, defs, "name")
	assert.Contains(t, defs, "email")
}

func TestService_EntityFieldsUnknownEntity(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())

	env := svc.EntityFields(context.Background(), "no.such", nil, nil)
	require.False(t, env.OK)
	assert.Equal(t, fault.KindInvalidEntity, env.Err.Kind)
}

func TestService_EntityInfo(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())

	env := svc.EntityInfo(context.Background(), "res.partner")
	require.True(t, env.OK, "error: %v", env.Err)
	info := env.Data.(map[string]any)
	assert.Equal(t, "res.partner", info["entity"])
	assert.Equal(t, "Contact", info["name"])
	assert.Equal(t, false, info["transient"])
	assert.Equal(t, 4, info["fieldCount"])
}

func TestService_ServerInfoCached(t *testing.T) {
	svc, ft := newStack(t, cache.DefaultPolicy())
	ctx := context.Background()

	env := svc.ServerInfo(ctx)
	require.True(t, env.OK)
	assert.Equal(t, CacheMiss, env.Meta.Cache)

	env = svc.ServerInfo(ctx)
	require.True(t, env.OK)
	assert.Equal(t, CacheHit, env.Meta.Cache)
	assert.Equal(t, 1, ft.count("version"))
}

func TestService_ListDatabases(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())

	env := svc.ListDatabases(context.Background())
	require.True(t, env.OK)
	assert.Equal(t, []string{"prod", "staging"}, env.Data)
}

func TestService_RenderReport(t *testing.T) {
	svc, ft := newStack(t, cache.DefaultPolicy())
	ctx := context.Background()

	env := svc.RenderReport(ctx, "sale.report_saleorder", IDList([]int64{1}), nil)
	require.True(t, env.OK)
	assert.Equal(t, "report-bytes", env.Data)

	// Never cached: output depends on live record state.
	require.True(t, svc.RenderReport(ctx, "sale.report_saleorder", IDList([]int64{1}), nil).OK)
	assert.Equal(t, 2, ft.count("render_report"))
}

func TestService_CacheStats(t *testing.T) {
	svc, _ := newStack(t, cache.DefaultPolicy())
	ctx := context.Background()

	require.True(t, svc.Search(ctx, "res.partner", validate.NoFilter(), SearchOptions{}).OK)

	env := svc.CacheStats(ctx)
	require.True(t, env.OK)
	stats := env.Data.(cache.Stats)
	assert.True(t, stats.Enabled)
	assert.Greater(t, stats.Size, 0)
}
