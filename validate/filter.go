package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonwraymond/erpgate/fault"
)

// Clause is one (field, operator, value) triple of a domain filter.
type Clause struct {
	Field    string
	Operator string
	Value    any
}

// Domain is an ordered sequence of clauses. An empty domain matches
// all records.
type Domain []Clause

// Wire renders the domain in the upstream list-of-triples form.
func (d Domain) Wire() []any {
	out := make([]any, len(d))
	for i, c := range d {
		out[i] = []any{c.Field, c.Operator, c.Value}
	}
	return out
}

// FieldNames returns the field referenced by each clause, deduplicated.
func (d Domain) FieldNames() []string {
	seen := make(map[string]bool, len(d))
	names := make([]string, 0, len(d))
	for _, c := range d {
		if !seen[c.Field] {
			seen[c.Field] = true
			names = append(names, c.Field)
		}
	}
	return names
}

// RawFilter is the tagged union of accepted domain inputs: JSON text
// or a structured clause list. It is resolved exactly once, at the
// validator boundary.
type RawFilter struct {
	text   string
	list   []any
	isText bool
	set    bool
}

// FilterText wraps a JSON-encoded domain.
func FilterText(s string) RawFilter {
	return RawFilter{text: s, isText: true, set: true}
}

// FilterList wraps a structured clause list.
func FilterList(clauses []any) RawFilter {
	return RawFilter{list: clauses, set: true}
}

// NoFilter is the empty filter, matching all records.
func NoFilter() RawFilter {
	return RawFilter{}
}

// NormalizeDomain resolves a RawFilter into a Domain, coercing each
// clause to a fixed-length ordered triple.
func NormalizeDomain(f RawFilter) (Domain, error) {
	if !f.set {
		return Domain{}, nil
	}

	list := f.list
	if f.isText {
		text := strings.TrimSpace(f.text)
		if text == "" {
			return Domain{}, nil
		}
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, fault.InvalidDomain("domain must be a list of clauses or a JSON-encoded list")
		}
	}

	domain := make(Domain, 0, len(list))
	for i, raw := range list {
		clause, ok := raw.([]any)
		if !ok {
			return nil, fault.InvalidDomain(fmt.Sprintf("domain clause %d is not a list", i))
		}
		if len(clause) != 3 {
			return nil, fault.InvalidDomain(fmt.Sprintf("domain clause %d has %d elements, want 3", i, len(clause)))
		}
		field, ok := clause[0].(string)
		if !ok {
			return nil, fault.InvalidDomain(fmt.Sprintf("domain clause %d field name is not a string", i))
		}
		operator, ok := clause[1].(string)
		if !ok {
			return nil, fault.InvalidDomain(fmt.Sprintf("domain clause %d operator is not a string", i))
		}
		domain = append(domain, Clause{Field: field, Operator: operator, Value: clause[2]})
	}
	return domain, nil
}

// NormalizeFields resolves a field projection given as a JSON-encoded
// list, a comma-separated string, or a string list. A nil result means
// "all fields".
func NormalizeFields(fields any) ([]string, error) {
	switch v := fields.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, f := range v {
			s, ok := f.(string)
			if !ok {
				return nil, fault.New(fault.KindInvalidField, fmt.Sprintf("fields element %d is not a string", i))
			}
			out[i] = s
		}
		return out, nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return nil, nil
		}
		if strings.HasPrefix(text, "[") {
			var out []string
			if err := json.Unmarshal([]byte(text), &out); err != nil {
				return nil, fault.New(fault.KindInvalidField, "fields must be a list of strings or a JSON-encoded list")
			}
			return out, nil
		}
		var out []string
		for _, part := range strings.Split(text, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fault.New(fault.KindInvalidField, fmt.Sprintf("unsupported fields type %T", fields))
	}
}
