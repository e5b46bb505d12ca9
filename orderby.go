package parquet

import "sort"

// orderKey pairs an orderBy column's decoded value with the row's original
// position, the unit the orderBy-only strategy sorts and re-projects by
// (spec.md §4.I).
type orderKey struct {
	index int
	value any
}

func sliceIndexed(keys []orderKey, start, end int64) []orderKey {
	if end <= 0 || end > int64(len(keys)) {
		end = int64(len(keys))
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return nil
	}
	return keys[start:end]
}

// lessWithNullOrdering implements spec.md §4.I's null-ordering rule: nulls
// sort after real values ascending, before real values descending.
func lessWithNullOrdering(a, b any, descending bool) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil {
		return descending
	}
	if b == nil {
		return !descending
	}
	c := compareValues(a, b, false)
	if descending {
		return c > 0
	}
	return c < 0
}

// sortRowsByColumn stable-sorts rows in place by row[column], applying the
// same null-ordering rule as the orderBy-only strategy.
func sortRowsByColumn(rows []map[string]any, column string, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		return lessWithNullOrdering(rows[i][column], rows[j][column], descending)
	})
}
