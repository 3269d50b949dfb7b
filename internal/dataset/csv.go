package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrBadDelimiter is returned for a delimiter that is not one character.
var ErrBadDelimiter = errors.New("dataset: delimiter must be a single character")

// Delimiter separates fields. In JSON it is a one-character string.
type Delimiter rune

func (d Delimiter) MarshalJSON() ([]byte, error) {
	if d == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(string(rune(d)))
}

func (d *Delimiter) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrBadDelimiter, b)
	}
	if s == "" {
		*d = 0
		return nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return fmt.Errorf("%w: %q", ErrBadDelimiter, s)
	}
	*d = Delimiter(r)
	return nil
}

// LoadOptions controls how a delimiter-separated file becomes a Table.
type LoadOptions struct {
	// Delimiter defaults to ',' (or '|' for .psv and tab for .tsv files).
	Delimiter Delimiter `json:"delimiter,omitempty"`
	// NoHeader marks the first line as data rather than column names.
	NoHeader bool `json:"no_header"`
	// Names replaces the inferred column names.
	Names []string `json:"names"`
	// Features lists the numeric columns to keep. Empty keeps every numeric
	// column other than LabelColumn.
	Features []string `json:"features"`
	// LabelColumn holds ground truth classes, kept apart from the features.
	LabelColumn string `json:"label_column"`
	// DropNA skips rows with missing feature values instead of failing.
	DropNA bool `json:"drop_na"`
}

// ReadFrame parses delimiter-separated text into a gota DataFrame.
func ReadFrame(r io.Reader, opts LoadOptions) (dataframe.DataFrame, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	loadOpts := []dataframe.LoadOption{
		dataframe.WithDelimiter(rune(delim)),
		dataframe.HasHeader(!opts.NoHeader),
	}
	if opts.LabelColumn != "" && len(opts.Names) == 0 {
		loadOpts = append(loadOpts, dataframe.WithTypes(map[string]series.Type{
			opts.LabelColumn: series.String,
		}))
	}
	df := dataframe.ReadCSV(r, loadOpts...)
	if df.Err != nil {
		return df, fmt.Errorf("read csv: %w", df.Err)
	}
	if len(opts.Names) > 0 {
		if err := df.SetNames(opts.Names...); err != nil {
			return df, fmt.Errorf("set column names: %w", err)
		}
	}
	return df, nil
}

// ReadCSV parses delimiter-separated text into a Table.
func ReadCSV(r io.Reader, name string, opts LoadOptions) (*Table, error) {
	df, err := ReadFrame(r, opts)
	if err != nil {
		return nil, err
	}
	return FromFrame(df, name, opts)
}

// LoadFile reads a table from disk. The delimiter is inferred from the file
// extension when opts leaves it unset.
func LoadFile(path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	if opts.Delimiter == 0 {
		opts.Delimiter = DelimiterFor(path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(f, name, opts)
}

// DelimiterFor guesses a delimiter from a file extension.
func DelimiterFor(path string) Delimiter {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".psv":
		return '|'
	case ".tsv", ".tab":
		return '\t'
	}
	return ','
}

// FromFrame converts the numeric columns of df into a Table.
func FromFrame(df dataframe.DataFrame, name string, opts LoadOptions) (*Table, error) {
	if df.Nrow() == 0 {
		return nil, ErrEmpty
	}
	names := df.Names()
	has := make(map[string]bool, len(names))
	for _, n := range names {
		has[n] = true
	}

	features := opts.Features
	if len(features) == 0 {
		for _, n := range names {
			if n == opts.LabelColumn {
				continue
			}
			if t := df.Col(n).Type(); t == series.Float || t == series.Int {
				features = append(features, n)
			}
		}
		if len(features) == 0 {
			return nil, fmt.Errorf("%w: no numeric columns in %v", ErrNonNumericColumn, names)
		}
	}

	cols := make([][]float64, len(features))
	for j, f := range features {
		if !has[f] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, f)
		}
		s := df.Col(f)
		if t := s.Type(); t != series.Float && t != series.Int {
			return nil, fmt.Errorf("%w: %q has type %s", ErrNonNumericColumn, f, t)
		}
		cols[j] = s.Float()
	}

	var labels []string
	if opts.LabelColumn != "" {
		if !has[opts.LabelColumn] {
			return nil, fmt.Errorf("%w: label %q", ErrUnknownColumn, opts.LabelColumn)
		}
		labels = df.Col(opts.LabelColumn).Records()
	}

	t := &Table{Name: name, Columns: append([]string(nil), features...)}
	for i := 0; i < df.Nrow(); i++ {
		row := make([]float64, len(features))
		missing := false
		for j := range features {
			row[j] = cols[j][i]
			if math.IsNaN(row[j]) {
				missing = true
			} else if math.IsInf(row[j], 0) {
				return nil, fmt.Errorf("%w: row %d column %q", ErrNonFinite, i, features[j])
			}
		}
		if missing {
			if opts.DropNA {
				continue
			}
			return nil, fmt.Errorf("%w: row %d", ErrMissingValue, i)
		}
		t.Rows = append(t.Rows, row)
		if labels != nil {
			t.Labels = append(t.Labels, labels[i])
		}
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// FilterGreater keeps the rows of df whose column exceeds v, the dataframe
// analogue of a boolean-mask selection.
func FilterGreater(df dataframe.DataFrame, column string, v float64) (dataframe.DataFrame, error) {
	out := df.Filter(dataframe.F{Colname: column, Comparator: series.Greater, Comparando: v})
	if out.Err != nil {
		return out, fmt.Errorf("filter %s > %v: %w", column, v, out.Err)
	}
	return out, nil
}
