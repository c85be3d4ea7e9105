package index

// FilterValue constrains a single indexed property within a Filter.
type FilterValue interface {
	matches(v any) bool
}

// EqualFilter matches a property against a single exact value.
type EqualFilter struct{ Value any }

func (f EqualFilter) matches(v any) bool { return looseEqual(v, f.Value) }

// OneOfFilter matches a property against any of several exact values.
type OneOfFilter struct{ Values []any }

func (f OneOfFilter) matches(v any) bool {
	for _, want := range f.Values {
		if looseEqual(v, want) {
			return true
		}
	}
	return false
}

// RangeFilter matches a property within optional bounds. Bounds compare
// using the same encoding the forward index keys use, so a RangeFilter
// and an index range scan always agree on ordering.
type RangeFilter struct {
	Gt, Gte, Lt, Lte any
}

func (f RangeFilter) matches(v any) bool {
	enc, err := encodeValue(v)
	if err != nil {
		return false
	}
	if f.Gt != nil {
		if b, err := encodeValue(f.Gt); err != nil || enc <= b {
			return false
		}
	}
	if f.Gte != nil {
		if b, err := encodeValue(f.Gte); err != nil || enc < b {
			return false
		}
	}
	if f.Lt != nil {
		if b, err := encodeValue(f.Lt); err != nil || enc >= b {
			return false
		}
	}
	if f.Lte != nil {
		if b, err := encodeValue(f.Lte); err != nil || enc > b {
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	ae, aerr := encodeValue(a)
	be, berr := encodeValue(b)
	if aerr != nil || berr != nil {
		return a == b
	}
	return ae == be
}

// Filter is a conjunction (AND) of per-property constraints. A query's
// overall filter set is a disjunction (OR) of Filters — spec.md's
// "multiple Filter objects within a single query match if any one of them
// matches" rule.
type Filter map[string]FilterValue

// selectivityOrder lists property names from most to least selective,
// mirroring spec.md §4.2's filter-planner priority: an exact-match
// identifier beats a structural property, which beats falling back to a
// full sorted-index scan.
var selectivityOrder = []string{
	"recordId",
	"permissionsGrantId",
	"contextId",
	"schema",
	"protocolPath",
	"protocol",
}

// bestIndexedProperty returns the highest-priority property in f that has
// an EqualFilter or OneOfFilter value (the only kinds a forward-index
// range scan can seed candidates from directly), or "" if none qualifies
// and the planner must fall back to a full sorted-index scan.
func (f Filter) bestIndexedProperty() string {
	for _, prop := range selectivityOrder {
		switch f[prop].(type) {
		case EqualFilter, OneOfFilter:
			return prop
		}
	}
	return ""
}

// matchesAll reports whether every clause in f matches the corresponding
// property in properties.
func (f Filter) matchesAll(properties map[string]any) bool {
	for prop, fv := range f {
		if !fv.matches(properties[prop]) {
			return false
		}
	}
	return true
}
