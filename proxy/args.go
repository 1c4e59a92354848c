package proxy

// IDs is the tagged union of record id inputs. A scalar input yields a
// scalar result on the operations that honor it; a list input yields a
// list result.
type IDs struct {
	list   []int64
	scalar bool
}

// ID wraps a single record id.
func ID(id int64) IDs {
	return IDs{list: []int64{id}, scalar: true}
}

// IDList wraps a list of record ids.
func IDList(ids []int64) IDs {
	return IDs{list: ids}
}

// List returns the ids as a list regardless of input shape.
func (i IDs) List() []int64 { return i.list }

// Scalar reports whether the input was a single id.
func (i IDs) Scalar() bool { return i.scalar }

// Values is the tagged union of record value inputs for create: one
// record or a batch. A scalar input yields a scalar created id.
type Values struct {
	list   []map[string]any
	scalar bool
}

// Value wraps a single record's values.
func Value(v map[string]any) Values {
	return Values{list: []map[string]any{v}, scalar: true}
}

// ValueList wraps a batch of records' values.
func ValueList(vs []map[string]any) Values {
	return Values{list: vs}
}

// List returns the value maps as a list regardless of input shape.
func (v Values) List() []map[string]any { return v.list }

// Scalar reports whether the input was a single record.
func (v Values) Scalar() bool { return v.scalar }

// SearchOptions carries paging and ordering for search operations.
type SearchOptions struct {
	Offset int
	// Limit of 0 means no limit.
	Limit int
	Order string
}

func idsToWire(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func valuesToWire(vs []map[string]any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
