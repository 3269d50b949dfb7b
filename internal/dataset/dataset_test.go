package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const housingCSV = `median_income,house_age,rooms,ocean
8.3252,41,6.98,NEAR BAY
8.3014,21,6.24,NEAR BAY
7.2574,52,8.29,INLAND
5.6431,52,5.82,INLAND
`

func TestReadCSVInfersNumericColumns(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(housingCSV), "housing", LoadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Len() != 4 || tbl.Dim() != 3 {
		t.Fatalf("expected 4x3 table, got %dx%d", tbl.Len(), tbl.Dim())
	}
	if tbl.Columns[0] != "median_income" || tbl.Columns[2] != "rooms" {
		t.Errorf("unexpected columns %v", tbl.Columns)
	}
	if tbl.Rows[2][1] != 52 {
		t.Errorf("expected house_age 52, got %f", tbl.Rows[2][1])
	}
}

func TestReadCSVPipeDelimitedWithNames(t *testing.T) {
	data := "1|0.5|setosa\n2|1.5|virginica\n3|2.5|virginica\n"
	tbl, err := ReadCSV(strings.NewReader(data), "flowers", LoadOptions{
		Delimiter:   '|',
		NoHeader:    true,
		Names:       []string{"id", "petal", "species"},
		Features:    []string{"petal"},
		LabelColumn: "species",
	})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Len() != 3 || tbl.Dim() != 1 {
		t.Fatalf("expected 3x1 table, got %dx%d", tbl.Len(), tbl.Dim())
	}
	if tbl.Rows[1][0] != 1.5 {
		t.Errorf("expected 1.5, got %f", tbl.Rows[1][0])
	}
	if tbl.Labels[2] != "virginica" {
		t.Errorf("unexpected labels %v", tbl.Labels)
	}
}

func TestReadCSVNonNumericFeature(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(housingCSV), "housing", LoadOptions{Features: []string{"ocean"}})
	if !errors.Is(err, ErrNonNumericColumn) {
		t.Errorf("expected ErrNonNumericColumn, got %v", err)
	}
}

func TestReadCSVUnknownColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(housingCSV), "housing", LoadOptions{Features: []string{"price"}})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestReadCSVMissingValues(t *testing.T) {
	data := "a,b\n1,2\n3,\n5,6\n"
	if _, err := ReadCSV(strings.NewReader(data), "m", LoadOptions{}); !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected ErrMissingValue, got %v", err)
	}
	tbl, err := ReadCSV(strings.NewReader(data), "m", LoadOptions{DropNA: true})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 {
		t.Errorf("expected 2 rows after dropping, got %d", tbl.Len())
	}
}

func TestLoadFileInfersPipeDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracts.psv")
	os.WriteFile(path, []byte("tract|loans|insured\n101|12|3\n102|40|9\n"), 0o644)

	tbl, err := LoadFile(path, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tbl.Name != "tracts" {
		t.Errorf("expected name tracts, got %s", tbl.Name)
	}
	if tbl.Dim() != 3 || tbl.Rows[1][1] != 40 {
		t.Errorf("unexpected table %+v", tbl)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/data.csv", LoadOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterGreater(t *testing.T) {
	df, err := ReadFrame(strings.NewReader(housingCSV), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := FilterGreater(df, "median_income", 8)
	if err != nil {
		t.Fatal(err)
	}
	if out.Nrow() != 2 {
		t.Errorf("expected 2 rows above 8, got %d", out.Nrow())
	}
}

func TestTableSelectFilterHead(t *testing.T) {
	tbl, err := NewTable("t", []string{"a", "b"}, [][]float64{{1, 10}, {2, 20}, {3, 30}}, []string{"x", "y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	sel, err := tbl.Select("b")
	if err != nil {
		t.Fatal(err)
	}
	if sel.Dim() != 1 || sel.Rows[2][0] != 30 {
		t.Errorf("unexpected selection %+v", sel)
	}
	if _, err := tbl.Select("c"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	f := tbl.Filter(func(r []float64) bool { return r[0] >= 2 })
	if f.Len() != 2 || f.Labels[0] != "y" {
		t.Errorf("unexpected filter result %+v", f)
	}
	if h := tbl.Head(10); h.Len() != 3 {
		t.Errorf("head should clamp, got %d", h.Len())
	}
	col, _ := tbl.Column("a")
	if col[1] != 2 {
		t.Errorf("unexpected column %v", col)
	}
}

func TestNewTableValidation(t *testing.T) {
	if _, err := NewTable("t", nil, nil, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := NewTable("t", []string{"a"}, [][]float64{{1, 2}}, nil); !errors.Is(err, ErrRagged) {
		t.Errorf("expected ErrRagged, got %v", err)
	}
	tbl, err := NewTable("t", nil, [][]float64{{1, 2}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Columns[1] != "x1" {
		t.Errorf("expected generated column names, got %v", tbl.Columns)
	}
}

func TestIris(t *testing.T) {
	tbl, err := Iris()
	if err != nil {
		t.Fatalf("Iris: %v", err)
	}
	if tbl.Len() != 150 || tbl.Dim() != 4 {
		t.Fatalf("expected 150x4, got %dx%d", tbl.Len(), tbl.Dim())
	}
	classes := make(map[string]bool)
	for _, l := range tbl.Labels {
		classes[l] = true
	}
	if len(classes) != 3 {
		t.Errorf("expected 3 species, got %v", classes)
	}
}

func TestSourceLoad(t *testing.T) {
	tbl, err := Source{Rows: [][]float64{{0, 0}, {1, 1}}}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Name != "inline" || tbl.Len() != 2 {
		t.Errorf("unexpected inline table %+v", tbl)
	}
	if _, err := (Source{Builtin: "mnist"}).Load(); err == nil {
		t.Error("expected error for unknown builtin")
	}
	if _, err := (Source{}).Load(); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	sel, err := Source{Builtin: "iris", Options: LoadOptions{Features: []string{"petal_length", "petal_width"}}}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if sel.Dim() != 2 {
		t.Errorf("expected 2 selected features, got %d", sel.Dim())
	}
}

func TestNonFiniteValuesRejected(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1, math.Inf(1), 3}, series.Float, "a"),
		series.New([]float64{4, 5, 6}, series.Float, "b"),
	)
	if _, err := FromFrame(df, "inf", LoadOptions{}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("FromFrame: expected ErrNonFinite, got %v", err)
	}
	rows := [][]float64{{1, 2}, {math.Inf(-1), 0}}
	if _, err := NewTable("inline", nil, rows, nil); !errors.Is(err, ErrNonFinite) {
		t.Errorf("NewTable: expected ErrNonFinite, got %v", err)
	}
}

func TestDelimiterJSON(t *testing.T) {
	var opts LoadOptions
	if err := json.Unmarshal([]byte(`{"delimiter":"|","no_header":true}`), &opts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if opts.Delimiter != '|' || !opts.NoHeader {
		t.Errorf("unexpected options %+v", opts)
	}
	b, err := json.Marshal(LoadOptions{Delimiter: '\t'})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"delimiter":"\t"`) {
		t.Errorf("delimiter should encode as a string, got %s", b)
	}
	for _, bad := range []string{`{"delimiter":"ab"}`, `{"delimiter":124}`} {
		if err := json.Unmarshal([]byte(bad), &opts); !errors.Is(err, ErrBadDelimiter) {
			t.Errorf("%s: expected ErrBadDelimiter, got %v", bad, err)
		}
	}
}
