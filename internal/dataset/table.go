// Package dataset loads rectangular feature tables from delimiter-separated
// files, inline rows or bundled sample data.
package dataset

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownColumn    = errors.New("dataset: unknown column")
	ErrNonNumericColumn = errors.New("dataset: column is not numeric")
	ErrMissingValue     = errors.New("dataset: missing value")
	ErrEmpty            = errors.New("dataset: no rows")
	ErrRagged           = errors.New("dataset: row width does not match columns")
	ErrUnknownDataset   = errors.New("dataset: unknown builtin")
	ErrNonFinite        = errors.New("dataset: value is NaN or infinite")
)

// Table is a numeric feature matrix with named columns and optional ground
// truth class labels per row.
type Table struct {
	Name    string      `json:"name"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Labels  []string    `json:"labels,omitempty"`
}

// NewTable validates rows against columns and returns a table.
func NewTable(name string, columns []string, rows [][]float64, labels []string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if columns == nil {
		columns = make([]string, len(rows[0]))
		for i := range columns {
			columns[i] = fmt.Sprintf("x%d", i)
		}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, %d columns", ErrRagged, i, len(r), len(columns))
		}
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %q", ErrNonFinite, i, columns[j])
			}
		}
	}
	if labels != nil && len(labels) != len(rows) {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrRagged, len(labels), len(rows))
	}
	return &Table{Name: name, Columns: columns, Rows: rows, Labels: labels}, nil
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Dim() int { return len(t.Columns) }

func (t *Table) columnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Column returns a copy of one feature column.
func (t *Table) Column(name string) ([]float64, error) {
	j, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select keeps only the named columns, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, err := t.columnIndex(c)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	rows := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]float64, len(idx))
		for k, j := range idx {
			rows[i][k] = r[j]
		}
	}
	return &Table{Name: t.Name, Columns: append([]string(nil), cols...), Rows: rows, Labels: t.Labels}, nil
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row []float64) bool) *Table {
	out := &Table{Name: t.Name, Columns: t.Columns}
	for i, r := range t.Rows {
		if !keep(r) {
			continue
		}
		out.Rows = append(out.Rows, r)
		if t.Labels != nil {
			out.Labels = append(out.Labels, t.Labels[i])
		}
	}
	return out
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := &Table{Name: t.Name, Columns: t.Columns, Rows: t.Rows[:n]}
	if t.Labels != nil {
		out.Labels = t.Labels[:n]
	}
	return out
}
