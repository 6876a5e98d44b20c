// Package timeseries holds a small time-indexed table and the rollup
// engine that aligns irregular observations onto regular period grids.
//
// Numeric columns use NaN for missing samples, string columns use "".
// All operations return new tables; a Table is never mutated after
// construction.
package timeseries

import (
	"math"
	"sort"
	"time"
)

// Column is one named series of a Table. Exactly one of Floats and
// Strings is non-nil, and its length always matches the table index.
type Column struct {
	Name    string
	Floats  []float64
	Strings []string
}

// IsNumeric reports whether the column holds float samples.
func (c Column) IsNumeric() bool { return c.Floats != nil }

// Table is a set of columns sharing one timestamp index. The index is
// not guaranteed unique or sorted; call SortByTime before any bucketing
// operation.
type Table struct {
	Index []time.Time
	Cols  []Column
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Index) }

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Cols))
	for i, c := range t.Cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Filter returns a table keeping only the columns accepted by keep,
// preserving order.
func (t Table) Filter(keep func(name string) bool) Table {
	out := Table{Index: t.Index}
	for _, c := range t.Cols {
		if keep(c.Name) {
			out.Cols = append(out.Cols, c)
		}
	}
	return out
}

// Numeric returns a table with only the numeric columns.
func (t Table) Numeric() Table {
	return t.Filter(func(name string) bool {
		c, _ := t.Column(name)
		return c.IsNumeric()
	})
}

// SortByTime returns the table with rows ordered by ascending timestamp.
// The sort is stable, so rows sharing a timestamp keep their input order.
func (t Table) SortByTime() Table {
	n := t.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.Index[order[a]].Before(t.Index[order[b]])
	})

	out := Table{Index: make([]time.Time, n)}
	for i, src := range order {
		out.Index[i] = t.Index[src]
	}
	for _, c := range t.Cols {
		nc := Column{Name: c.Name}
		if c.IsNumeric() {
			nc.Floats = make([]float64, n)
			for i, src := range order {
				nc.Floats[i] = c.Floats[src]
			}
		} else {
			nc.Strings = make([]string, n)
			for i, src := range order {
				nc.Strings[i] = c.Strings[src]
			}
		}
		out.Cols = append(out.Cols, nc)
	}
	return out
}

// In converts the index to the given location for display. The
// underlying instants are unchanged, so any bucketing computed before
// the conversion still holds.
func (t Table) In(loc *time.Location) Table {
	out := Table{Index: make([]time.Time, t.Len()), Cols: t.Cols}
	for i, ts := range t.Index {
		out.Index[i] = ts.In(loc)
	}
	return out
}

// newFloats allocates a float column body initialized to missing.
func newFloats(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}
