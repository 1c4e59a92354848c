package cache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrIncomparable is returned when a top-level sequence mixes element
// types that cannot be ordered against each other.
var ErrIncomparable = errors.New("cache: sequence elements are not mutually comparable")

// BuildKey deterministically serializes an operation name plus its
// normalized arguments into a cache key.
//
// Rules: scalars stringify directly; top-level sequences are sorted
// then stringified; maps are stringified as sorted (key, value) pairs;
// named arguments are rendered name:value in sorted name order. Parts
// join with "|". Sequences nested inside a clause keep their order:
// only top-level sequences are normalized.
func BuildKey(op string, args []any, kwargs map[string]any) (string, error) {
	parts := make([]string, 0, 1+len(args)+len(kwargs))
	parts = append(parts, op)

	for _, arg := range args {
		s, err := render(arg, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := render(kwargs[name], true)
		if err != nil {
			return "", err
		}
		parts = append(parts, name+":"+s)
	}

	return strings.Join(parts, "|"), nil
}

// AuthKey is the cache key for an authentication token.
func AuthKey(username, database string) string {
	return fmt.Sprintf("auth:%s:%s", username, database)
}

// render stringifies a value. sortTop controls whether a sequence at
// this level is order-normalized; nested sequences never are.
func render(v any, sortTop bool) (string, error) {
	switch val := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return val, nil
	case []any:
		return renderSlice(val, sortTop)
	case []string:
		return renderSlice(toAny(val), sortTop)
	case []int:
		return renderSlice(toAny(val), sortTop)
	case []int64:
		return renderSlice(toAny(val), sortTop)
	case []float64:
		return renderSlice(toAny(val), sortTop)
	case map[string]any:
		return renderMap(val)
	default:
		return fmt.Sprintf("%v", val), nil
	}
}

func renderSlice(s []any, sortTop bool) (string, error) {
	elems := make([]string, len(s))
	for i, v := range s {
		r, err := render(v, false)
		if err != nil {
			return "", err
		}
		elems[i] = r
	}

	if sortTop && len(s) > 1 {
		if err := sortElements(s, elems); err != nil {
			return "", err
		}
	}

	return "[" + strings.Join(elems, ",") + "]", nil
}

func renderMap(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		r, err := render(m[k], false)
		if err != nil {
			return "", err
		}
		pairs[i] = k + "=" + r
	}
	return "{" + strings.Join(pairs, ",") + "}", nil
}

// comparison classes for sortable sequence elements
type cmpClass int

const (
	classNumber cmpClass = iota
	classString
	classBool
	classComposite // sequences and maps order by rendered form
)

func classOf(v any) cmpClass {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return classNumber
	case string:
		return classString
	case bool:
		return classBool
	default:
		return classComposite
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// sortElements orders elems (parallel to src) in place. Mixed
// comparison classes are an error.
func sortElements(src []any, elems []string) error {
	cls := classOf(src[0])
	for _, v := range src[1:] {
		if classOf(v) != cls {
			return fmt.Errorf("%w: %s", ErrIncomparable, describe(src))
		}
	}

	switch cls {
	case classNumber:
		keys := make([]float64, len(src))
		for i, v := range src {
			keys[i] = asFloat(v)
		}
		sort.Sort(&parallel[float64]{keys: keys, elems: elems, less: func(a, b float64) bool { return a < b }})
	case classBool:
		keys := make([]bool, len(src))
		for i, v := range src {
			keys[i] = v.(bool)
		}
		sort.Sort(&parallel[bool]{keys: keys, elems: elems, less: func(a, b bool) bool { return !a && b }})
	default:
		// Strings and composites order by rendered form.
		sort.Strings(elems)
	}
	return nil
}

type parallel[K any] struct {
	keys  []K
	elems []string
	less  func(a, b K) bool
}

func (p *parallel[K]) Len() int           { return len(p.keys) }
func (p *parallel[K]) Less(i, j int) bool { return p.less(p.keys[i], p.keys[j]) }
func (p *parallel[K]) Swap(i, j int) {
	p.keys[i], p.keys[j] = p.keys[j], p.keys[i]
	p.elems[i], p.elems[j] = p.elems[j], p.elems[i]
}

func describe(s []any) string {
	kinds := make([]string, len(s))
	for i, v := range s {
		kinds[i] = fmt.Sprintf("%T", v)
	}
	return strings.Join(kinds, ",")
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
