package dataset

import (
	"fmt"

	"github.com/pointlander/datum/iris"
)

// IrisColumns names the four measurements of Fisher's iris data.
var IrisColumns = []string{"sepal_length", "sepal_width", "petal_length", "petal_width"}

// Iris returns the 150 flower measurements of Fisher's iris data set with
// the species as ground truth labels.
func Iris() (*Table, error) {
	data, err := iris.Load()
	if err != nil {
		return nil, fmt.Errorf("load iris: %w", err)
	}
	t := &Table{Name: "iris", Columns: append([]string(nil), IrisColumns...)}
	for _, flower := range data.Fisher {
		t.Rows = append(t.Rows, append([]float64(nil), flower.Measures...))
		t.Labels = append(t.Labels, flower.Label)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// Builtins lists the bundled datasets by name.
var Builtins = map[string]func() (*Table, error){
	"iris": Iris,
}

// Source describes where a table comes from: a bundled dataset, a file on
// disk, or rows supplied inline. Exactly one should be set.
type Source struct {
	Builtin string      `json:"builtin,omitempty"`
	Path    string      `json:"path,omitempty"`
	Rows    [][]float64 `json:"rows,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	Labels  []string    `json:"labels,omitempty"`
	Options LoadOptions `json:"options"`
}

// Load resolves the source into a Table.
func (s Source) Load() (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch {
	case s.Builtin != "":
		load, ok := Builtins[s.Builtin]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownDataset, s.Builtin)
		}
		t, err = load()
	case s.Path != "":
		return LoadFile(s.Path, s.Options)
	case len(s.Rows) > 0:
		return NewTable("inline", s.Columns, s.Rows, s.Labels)
	default:
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(s.Options.Features) > 0 {
		return t.Select(s.Options.Features...)
	}
	return t, nil
}

// Name is a short description of the source for run records.
func (s Source) Name() string {
	switch {
	case s.Builtin != "":
		return s.Builtin
	case s.Path != "":
		return s.Path
	}
	return "inline"
}
