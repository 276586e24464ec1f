package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Table is the tabular dataset that flows through the pipeline. Rows are
// keyed by year, columns are named float64 series. Missing cells are NaN.
//
// Years are unique and strictly ascending; this is validated at construction
// and preserved by every mutation (rows are only ever appended via ExtendTo,
// never removed or reordered).
//
// Ownership is linear: each pipeline stage receives the table, mutates it in
// place, and hands it to the next stage. The table is not safe for concurrent
// mutation of the same column, but distinct columns may be written
// concurrently as long as no rows are being added.
type Table struct {
	years   []int
	index   map[int]int
	columns map[string][]float64
	order   []string
}

// Missing is the sentinel for an absent or not-computable cell.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// New creates a table for the given years with no columns. The years must be
// unique and strictly increasing; anything else is a precondition violation
// from the upstream loader and is the one hard error the core raises.
func New(years []int) (*Table, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("dataset: no years provided")
	}

	index := make(map[int]int, len(years))
	for i, y := range years {
		if i > 0 && y <= years[i-1] {
			return nil, fmt.Errorf("dataset: years must be strictly increasing, got %d after %d", y, years[i-1])
		}
		index[y] = i
	}

	return &Table{
		years:   append([]int(nil), years...),
		index:   index,
		columns: make(map[string][]float64),
		order:   make([]string, 0),
	}, nil
}

// Years returns the row keys in ascending order. The returned slice is a copy.
func (t *Table) Years() []int {
	return append([]int(nil), t.years...)
}

// FirstYear returns the earliest year in the table.
func (t *Table) FirstYear() int {
	return t.years[0]
}

// LastYear returns the latest year in the table.
func (t *Table) LastYear() int {
	return t.years[len(t.years)-1]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.years)
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Columns returns the column names in the order they were added.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// AddColumn creates a new column filled with the missing sentinel. Adding a
// column that already exists is a no-op.
func (t *Table) AddColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	col := make([]float64, len(t.years))
	for i := range col {
		col[i] = Missing()
	}
	t.columns[name] = col
	t.order = append(t.order, name)
}

// SetColumn replaces (or creates) a column with the given values, one per row.
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != len(t.years) {
		return fmt.Errorf("dataset: column %s has %d values, table has %d rows", name, len(values), len(t.years))
	}
	if !t.HasColumn(name) {
		t.order = append(t.order, name)
	}
	t.columns[name] = append([]float64(nil), values...)
	return nil
}

// Column returns the backing slice for a column, indexed in row order.
// Stages that own the table may mutate it in place; everyone else should
// treat it as read-only.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// Value returns the cell for (name, year). Absent columns and absent years
// both read as missing.
func (t *Table) Value(name string, year int) float64 {
	col, ok := t.columns[name]
	if !ok {
		return Missing()
	}
	i, ok := t.index[year]
	if !ok {
		return Missing()
	}
	return col[i]
}

// SetValue writes a single cell. The column is created on first write.
func (t *Table) SetValue(name string, year int, v float64) error {
	i, ok := t.index[year]
	if !ok {
		return fmt.Errorf("dataset: year %d not in table", year)
	}
	if !t.HasColumn(name) {
		t.AddColumn(name)
	}
	t.columns[name][i] = v
	return nil
}

// RowIndex returns the row position for a year.
func (t *Table) RowIndex(year int) (int, bool) {
	i, ok := t.index[year]
	return i, ok
}

// ExtendTo appends rows for every year after the current last year up to and
// including endYear. All existing columns get missing cells for the new rows.
// Extending to a year at or before the last year is a no-op.
func (t *Table) ExtendTo(endYear int) {
	last := t.LastYear()
	if endYear <= last {
		return
	}
	for y := last + 1; y <= endYear; y++ {
		t.index[y] = len(t.years)
		t.years = append(t.years, y)
		for name := range t.columns {
			t.columns[name] = append(t.columns[name], Missing())
		}
	}
}

// ObservedSpan returns the first and last year with a non-missing value in
// the column. ok is false when the column is absent or entirely missing.
func (t *Table) ObservedSpan(name string) (first, last int, ok bool) {
	col, exists := t.columns[name]
	if !exists {
		return 0, 0, false
	}
	for i, v := range col {
		if !IsMissing(v) {
			if !ok {
				first = t.years[i]
				ok = true
			}
			last = t.years[i]
		}
	}
	return first, last, ok
}

// ObservedCount returns the number of non-missing cells in the column.
func (t *Table) ObservedCount(name string) int {
	col, exists := t.columns[name]
	if !exists {
		return 0
	}
	n := 0
	for _, v := range col {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := &Table{
		years:   append([]int(nil), t.years...),
		index:   make(map[int]int, len(t.index)),
		columns: make(map[string][]float64, len(t.columns)),
		order:   append([]string(nil), t.order...),
	}
	for y, i := range t.index {
		clone.index[y] = i
	}
	for name, col := range t.columns {
		clone.columns[name] = append([]float64(nil), col...)
	}
	return clone
}

// Builder accumulates scattered (year, column, value) observations from the
// source loaders and assembles them into a validated Table.
type Builder struct {
	cells map[int]map[string]float64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{cells: make(map[int]map[string]float64)}
}

// Set records one observation. Later writes for the same (year, column) win,
// which lets the merge step express source precedence by ordering.
func (b *Builder) Set(year int, column string, value float64) {
	row, ok := b.cells[year]
	if !ok {
		row = make(map[string]float64)
		b.cells[year] = row
	}
	row[column] = value
}

// Merge copies every observation from the given year-keyed rows into the
// builder.
func (b *Builder) Merge(rows map[int]map[string]float64) {
	for year, row := range rows {
		for column, value := range row {
			b.Set(year, column, value)
		}
	}
}

// Build assembles the accumulated observations into a Table. Years are
// sorted ascending; columns are ordered lexically for reproducible output.
func (b *Builder) Build() (*Table, error) {
	if len(b.cells) == 0 {
		return nil, fmt.Errorf("dataset: builder has no observations")
	}

	years := make([]int, 0, len(b.cells))
	for y := range b.cells {
		years = append(years, y)
	}
	sort.Ints(years)

	names := make(map[string]struct{})
	for _, row := range b.cells {
		for name := range row {
			names[name] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	table, err := New(years)
	if err != nil {
		return nil, err
	}
	for _, name := range ordered {
		table.AddColumn(name)
		for _, y := range years {
			if v, ok := b.cells[y][name]; ok {
				if err := table.SetValue(name, y, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return table, nil
}
