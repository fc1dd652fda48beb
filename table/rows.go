package table

import (
	"fmt"
	"sort"
	"strings"
)

// filterRows narrows the row set by the free-text filter. A row matches when
// any Searchable column's printed value contains the filter text,
// case-insensitively.
func (t *Table[T]) filterRows() []T {
	if t.filter == "" {
		return t.rows
	}

	needle := strings.ToLower(t.filter)

	matched := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if t.matches(row, needle) {
			matched = append(matched, row)
		}
	}

	return matched
}

func (t *Table[T]) matches(row T, needle string) bool {
	for _, col := range t.columns {
		if !col.Searchable || col.Value == nil {
			continue
		}
		cell := strings.ToLower(fmt.Sprint(col.Value(row)))
		if strings.Contains(cell, needle) {
			return true
		}
	}

	return false
}

// sortRows orders rows by the active sort column. The sort is stable: rows
// with equal keys keep their original relative order. Without an active sort
// the input order is preserved.
func (t *Table[T]) sortRows(rows []T) []T {
	if !t.sortActive {
		return rows
	}

	var value func(T) any
	for _, col := range t.columns {
		if col.Key == t.sort.Key {
			value = col.Value

			break
		}
	}
	if value == nil {
		return rows
	}

	sorted := make([]T, len(rows))
	copy(sorted, rows)

	descending := t.sort.Direction == Descending
	sort.SliceStable(sorted, func(i, j int) bool {
		c := compareValues(value(sorted[i]), value(sorted[j]))
		if descending {
			return c > 0
		}

		return c < 0
	})

	return sorted
}
