package validate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/fault"
)

type fakeCaller struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCaller) Call(entity, method string, args []any, kwargs map[string]any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, entity+"."+method)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	switch method {
	case "search_read":
		return []any{
			map[string]any{"model": "res.partner", "name": "Contact", "transient": false},
			map[string]any{"model": "sale.order", "name": "Sales Order", "transient": false},
			map[string]any{"model": "res.partner.wizard", "name": "Wizard", "transient": true},
		}, nil
	case "fields_get":
		return map[string]any{
			"a":    map[string]any{"type": "char"},
			"name": map[string]any{"type": "char"},
		}, nil
	}
	return nil, fmt.Errorf("unexpected method %s", method)
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestValidator(t *testing.T) (*Validator, *fakeCaller) {
	t.Helper()
	caller := &fakeCaller{}
	c := cache.NewTTLCache(cache.DefaultPolicy())
	return New(caller, c, time.Hour, nil), caller
}

func TestValidator_EntityKnown(t *testing.T) {
	v, _ := newTestValidator(t)
	require.NoError(t, v.Entity("res.partner"))
}

func TestValidator_EntityUnknown(t *testing.T) {
	v, _ := newTestValidator(t)

	err := v.Entity("res.prtner")
	require.Error(t, err)

	fe := fault.Classify(err)
	assert.Equal(t, fault.KindInvalidEntity, fe.Kind)
	assert.True(t, fe.Retryable)
}

func TestValidator_BootstrapEntityExempt(t *testing.T) {
	v, caller := newTestValidator(t)

	require.NoError(t, v.Entity(BootstrapEntity))
	assert.Equal(t, 0, caller.callCount(), "bootstrap entity must not trigger a metadata fetch")
}

func TestValidator_EntityListCached(t *testing.T) {
	v, caller := newTestValidator(t)

	require.NoError(t, v.Entity("res.partner"))
	require.NoError(t, v.Entity("sale.order"))
	assert.Equal(t, 1, caller.callCount(), "second validation reads the cached entity list")
}

func TestValidator_FieldsEmptyIsNoop(t *testing.T) {
	v, caller := newTestValidator(t)

	require.NoError(t, v.Fields("res.partner", nil))
	require.NoError(t, v.Fields("res.partner", []string{}))
	assert.Equal(t, 0, caller.callCount())
}

func TestValidator_FieldsReportsAllMissingAtOnce(t *testing.T) {
	v, _ := newTestValidator(t)

	err := v.Fields("res.partner", []string{"a", "missing1", "missing2"})
	require.Error(t, err)

	fe := fault.Classify(err)
	assert.Equal(t, fault.KindInvalidField, fe.Kind)
	assert.Contains(t, fe.Message, "missing1")
	assert.Contains(t, fe.Message, "missing2")
	assert.NotContains(t, fe.Message, `"a"`)
}

func TestValidator_FieldDefsCached(t *testing.T) {
	v, caller := newTestValidator(t)

	_, hit, err := v.FieldDefs("res.partner", nil, nil)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = v.FieldDefs("res.partner", nil, nil)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, caller.callCount())
}

func TestValidator_ConcurrentMetadataFetchCollapses(t *testing.T) {
	v, caller := newTestValidator(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = v.Entities()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, caller.callCount(), "concurrent fetches collapse into one upstream call")
}

func TestValidator_UpstreamErrorPropagates(t *testing.T) {
	caller := &fakeCaller{err: fault.Transport(fmt.Errorf("connection refused"))}
	c := cache.NewTTLCache(cache.DefaultPolicy())
	v := New(caller, c, time.Hour, nil)

	err := v.Entity("res.partner")
	require.Error(t, err)
	assert.Equal(t, fault.KindTransport, fault.Classify(err).Kind)
}
