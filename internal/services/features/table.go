package features

import (
	"fmt"
	"math"
	"time"
)

// Target is the label column appended by the builder.
const Target = "Target"

// Row is one date of a FeatureTable. Values follow Table.Columns order; NaN marks a missing value.
type Row struct {
	Date   time.Time
	Values []float64
}

// Table is a date-indexed, column-ordered numeric table for one ticker.
type Table struct {
	Ticker  string
	Columns []string
	Rows    []Row

	index  map[string]int
	joined map[string]struct{}
}

// NewTable creates an empty table with the given columns.
func NewTable(ticker string, columns ...string) *Table {
	t := &Table{
		Ticker: ticker,
		index:  make(map[string]int, len(columns)),
		joined: make(map[string]struct{}),
	}
	for _, c := range columns {
		t.index[c] = len(t.Columns)
		t.Columns = append(t.Columns, c)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Col returns the position of column name or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool { return t.Col(name) >= 0 }

// Append adds a row; values must match the column count.
func (t *Table) Append(date time.Time, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("append %s: got %d values for %d columns", date.Format(time.DateOnly), len(values), len(t.Columns))
	}
	if n := len(t.Rows); n > 0 && !date.After(t.Rows[n-1].Date) {
		return fmt.Errorf("append %s: dates must be strictly increasing", date.Format(time.DateOnly))
	}
	t.Rows = append(t.Rows, Row{Date: date, Values: values})
	return nil
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) []float64 {
	i := t.Col(name)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row.Values[i]
	}
	return out
}

// Value returns the cell at row r in column name, NaN if the column is unknown.
func (t *Table) Value(r int, name string) float64 {
	i := t.Col(name)
	if i < 0 || r < 0 || r >= len(t.Rows) {
		return math.NaN()
	}
	return t.Rows[r].Values[i]
}

// Dates returns the row index.
func (t *Table) Dates() []time.Time {
	out := make([]time.Time, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Date
	}
	return out
}

// AddColumn appends a column whose values line up 1:1 with the rows.
func (t *Table) AddColumn(name string, values []float64) error {
	if t.Has(name) {
		return fmt.Errorf("add column %s: already exists", name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("add column %s: got %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.index[name] = len(t.Columns)
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values, values[i])
	}
	return nil
}

// DropColumn removes a column if present.
func (t *Table) DropColumn(name string) {
	i := t.Col(name)
	if i < 0 {
		return
	}
	t.Columns = append(t.Columns[:i:i], t.Columns[i+1:]...)
	for r := range t.Rows {
		v := t.Rows[r].Values
		t.Rows[r].Values = append(v[:i:i], v[i+1:]...)
	}
	t.reindex()
}

// LeftJoin adds series as column name, keyed by date. Rows with no matching date get NaN.
// The join is recorded under identity and a second join for the same identity is a no-op;
// it returns false in that case.
func (t *Table) LeftJoin(identity, name string, series map[time.Time]float64) (bool, error) {
	if t.Joined(identity) {
		return false, nil
	}
	values := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := series[row.Date]
		if !ok {
			v = math.NaN()
		}
		values[i] = v
	}
	if err := t.AddColumn(name, values); err != nil {
		return false, err
	}
	t.joined[identity] = struct{}{}
	return true, nil
}

// Joined reports whether an indicator identity was already joined.
func (t *Table) Joined(identity string) bool {
	_, ok := t.joined[identity]
	return ok
}

// DropNA removes every row holding a NaN or infinite value. It returns the number of rows removed.
func (t *Table) DropNA() int {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if complete(row.Values) {
			kept = append(kept, row)
		}
	}
	dropped := len(t.Rows) - len(kept)
	t.Rows = kept
	return dropped
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := NewTable(t.Ticker, t.Columns...)
	for id := range t.joined {
		c.joined[id] = struct{}{}
	}
	c.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = Row{Date: row.Date, Values: append([]float64(nil), row.Values...)}
	}
	return c
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

func complete(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
