package parquet

import (
	"fmt"
	"strconv"
)

// Condition is a single column's operator object (or an implicit-equality
// literal, represented as HasEq/Eq) from the MongoDB-style filter syntax of
// spec.md §4.H/§6.
type Condition struct {
	Eq, Ne, Lt, Lte, Gt, Gte   any
	HasEq, HasNe              bool
	HasLt, HasLte             bool
	HasGt, HasGte             bool
	In, Nin                   []any
	HasIn, HasNin             bool
	Not                       bool // $not at the condition level negates the whole condition
}

// Filter is a node of the filter tree: either a logical combinator ($and,
// $or, $nor, $not) or a leaf condition on one column.
type Filter struct {
	And    []*Filter
	Or     []*Filter
	Nor    []*Filter
	Not    *Filter
	Column string
	Cond   *Condition
}

// ParseFilter builds a Filter tree from a JSON-decoded map, the shape
// produced by unmarshalling the filter syntax spec.md §6 describes.
func ParseFilter(m map[string]any) (*Filter, error) {
	if len(m) == 0 {
		return nil, nil
	}
	if len(m) == 1 {
		for k, v := range m {
			switch k {
			case "$and":
				return parseCombinator(v, func(fs []*Filter) *Filter { return &Filter{And: fs} })
			case "$or":
				return parseCombinator(v, func(fs []*Filter) *Filter { return &Filter{Or: fs} })
			case "$nor":
				return parseCombinator(v, func(fs []*Filter) *Filter { return &Filter{Nor: fs} })
			case "$not":
				inner, ok := v.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("parquet: $not requires a filter object")
				}
				f, err := ParseFilter(inner)
				if err != nil {
					return nil, err
				}
				return &Filter{Not: f}, nil
			}
		}
	}
	// Multiple keys (or a single non-combinator key): implicit $and across
	// per-column conditions.
	var ands []*Filter
	for col, v := range m {
		cond, err := parseCondition(v)
		if err != nil {
			return nil, fmt.Errorf("parquet: column %q: %w", col, err)
		}
		ands = append(ands, &Filter{Column: col, Cond: cond})
	}
	if len(ands) == 1 {
		return ands[0], nil
	}
	return &Filter{And: ands}, nil
}

func parseCombinator(v any, build func([]*Filter) *Filter) (*Filter, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parquet: logical combinator requires an array of filters")
	}
	fs := make([]*Filter, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parquet: logical combinator element %d is not a filter object", i)
		}
		f, err := ParseFilter(m)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}
	return build(fs), nil
}

func parseCondition(v any) (*Condition, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return &Condition{Eq: v, HasEq: true}, nil
	}
	isOperator := false
	for k := range obj {
		if len(k) > 0 && k[0] == '$' {
			isOperator = true
			break
		}
	}
	if !isOperator {
		return &Condition{Eq: obj, HasEq: true}, nil
	}
	c := &Condition{}
	for k, val := range obj {
		switch k {
		case "$eq":
			c.Eq, c.HasEq = val, true
		case "$ne":
			c.Ne, c.HasNe = val, true
		case "$lt":
			c.Lt, c.HasLt = val, true
		case "$lte":
			c.Lte, c.HasLte = val, true
		case "$gt":
			c.Gt, c.HasGt = val, true
		case "$gte":
			c.Gte, c.HasGte = val, true
		case "$in":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("$in requires an array")
			}
			c.In, c.HasIn = list, true
		case "$nin":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("$nin requires an array")
			}
			c.Nin, c.HasNin = list, true
		case "$not":
			sub, err := parseCondition(val)
			if err != nil {
				return nil, err
			}
			sub.Not = true
			return sub, nil
		default:
			return nil, fmt.Errorf("unknown operator %q", k)
		}
	}
	return c, nil
}

// --- Statistics pushdown (spec.md §4.H) ---

// statsLookup resolves a column's (min, max) as converted values, or
// ok=false when statistics are absent.
type statsLookup func(column string) (min, max any, ok bool)

// CanSkipRowGroup reports whether every row in a row group is guaranteed to
// fail filter, based purely on column statistics; it is conservative: a
// true result never causes a real match to be dropped (spec.md §8's
// round-trip invariant).
func CanSkipRowGroup(filter *Filter, lookup statsLookup) bool {
	if filter == nil {
		return false
	}
	switch {
	case filter.And != nil:
		for _, f := range filter.And {
			if CanSkipRowGroup(f, lookup) {
				return true
			}
		}
		return false
	case filter.Or != nil:
		for _, f := range filter.Or {
			if !CanSkipRowGroup(f, lookup) {
				return false
			}
		}
		return len(filter.Or) > 0
	case filter.Nor != nil:
		return false // conservative: never skip based on $nor branches
	case filter.Not != nil:
		return false // conservative: negation's skip condition isn't the inverse of the child's
	default:
		min, max, ok := lookup(filter.Column)
		if !ok {
			return false
		}
		return conditionCanSkip(filter.Cond, min, max)
	}
}

func conditionCanSkip(c *Condition, min, max any) bool {
	if c.Not {
		return false // a negated condition's skip set isn't derivable from the positive rules below
	}
	switch {
	case c.HasGt:
		return lessEqual(max, c.Gt)
	case c.HasGte:
		return less(max, c.Gte)
	case c.HasLt:
		return greaterEqual(min, c.Lt)
	case c.HasLte:
		return greater(min, c.Lte)
	case c.HasEq:
		return less(c.Eq, min) || greater(c.Eq, max)
	case c.HasNe:
		return equal(min, max) && equal(min, c.Ne)
	case c.HasIn:
		for _, v := range c.In {
			if !less(v, min) && !greater(v, max) {
				return false
			}
		}
		return true
	case c.HasNin:
		return equal(min, max) && len(c.Nin) > 0 && containsEqual(c.Nin, min)
	default:
		return false
	}
}

func containsEqual(list []any, v any) bool {
	for _, x := range list {
		if equal(x, v) {
			return true
		}
	}
	return false
}

// --- Row-level evaluation ---

// EvaluateRow reports whether row matches filter. strict=true requires
// type-exact equality (spec.md's "Strict filtering"); strict=false allows
// numeric/string coercion.
func EvaluateRow(filter *Filter, row map[string]any, strict bool) bool {
	if filter == nil {
		return true
	}
	switch {
	case filter.And != nil:
		for _, f := range filter.And {
			if !EvaluateRow(f, row, strict) {
				return false
			}
		}
		return true
	case filter.Or != nil:
		for _, f := range filter.Or {
			if EvaluateRow(f, row, strict) {
				return true
			}
		}
		return len(filter.Or) == 0
	case filter.Nor != nil:
		for _, f := range filter.Nor {
			if EvaluateRow(f, row, strict) {
				return false
			}
		}
		return true
	case filter.Not != nil:
		return !EvaluateRow(filter.Not, row, strict)
	default:
		return evaluateCondition(filter.Cond, row[filter.Column], strict)
	}
}

func evaluateCondition(c *Condition, v any, strict bool) bool {
	var result bool
	switch {
	case c.HasGt:
		result = compareValues(v, c.Gt, strict) > 0
	case c.HasGte:
		result = compareValues(v, c.Gte, strict) >= 0
	case c.HasLt:
		result = compareValues(v, c.Lt, strict) < 0
	case c.HasLte:
		result = compareValues(v, c.Lte, strict) <= 0
	case c.HasEq:
		result = valuesEqual(v, c.Eq, strict)
	case c.HasNe:
		result = !valuesEqual(v, c.Ne, strict)
	case c.HasIn:
		for _, x := range c.In {
			if valuesEqual(v, x, strict) {
				result = true
				break
			}
		}
	case c.HasNin:
		result = true
		for _, x := range c.Nin {
			if valuesEqual(v, x, strict) {
				result = false
				break
			}
		}
	default:
		result = true
	}
	if c.Not {
		return !result
	}
	return result
}

func valuesEqual(a, b any, strict bool) bool {
	if strict {
		return a == b
	}
	return equal(a, b)
}

// --- generic comparison over decoded column values ---
//
// Supports the scalar types convertLeafValue/decodePlainValues produce;
// cross-type comparisons fall back to numeric coercion (non-strict
// semantics) or string formatting.

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case Decimal:
		return n.Float64(), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// compareValues returns <0, 0, or >0 for a<b, a==b, a>b. Values of
// incomparable types compare as 0 (neither greater nor less), which keeps
// ordering and predicate evaluation well-defined without panicking.
func compareValues(a, b any, strict bool) int {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			switch {
			case sa < sb:
				return -1
			case sa > sb:
				return 1
			default:
				return 0
			}
		}
	}
	if !strict || isNumeric(a) && isNumeric(b) {
		if fa, ok := toFloat64(a); ok {
			if fb, ok := toFloat64(b); ok {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				default:
					return 0
				}
			}
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba && bb:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}

func isNumeric(v any) bool {
	_, ok := toFloat64(v)
	return ok
}

func less(a, b any) bool         { return compareValues(a, b, false) < 0 }
func lessEqual(a, b any) bool    { return compareValues(a, b, false) <= 0 }
func greater(a, b any) bool      { return compareValues(a, b, false) > 0 }
func greaterEqual(a, b any) bool { return compareValues(a, b, false) >= 0 }
func equal(a, b any) bool        { return compareValues(a, b, false) == 0 }
