// Package dataset holds the tabular data model shared by the training and prediction flows.
//
// A Frame is an ordered set of equally long named columns. Columns are either numeric
// (float64, NaN marks a missing cell) or categorical (string, "" marks a missing cell).
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold strings.
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a single named column.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
}

// NewNumericColumn creates a numeric column. NaN marks a missing value.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Num: values}
}

// NewCategoricalColumn creates a categorical column. "" marks a missing value.
func NewCategoricalColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Categorical, Str: values}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Num)
	}
	return len(c.Str)
}

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Num[i])
	}
	return c.Str[i] == ""
}

// Missing returns the number of missing cells.
func (c *Column) Missing() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Value renders cell i as text. Missing cells render as "".
func (c *Column) Value(i int) string {
	if c.Kind == Categorical {
		return c.Str[i]
	}
	v := c.Num[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Levels returns the distinct non-missing values of the column, sorted.
// Numeric values are rendered with Value.
func (c *Column) Levels() []string {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		seen[c.Value(i)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	if c.Kind == Numeric {
		sort.Slice(out, func(a, b int) bool {
			x, _ := strconv.ParseFloat(out[a], 64)
			y, _ := strconv.ParseFloat(out[b], 64)
			return x < y
		})
	} else {
		sort.Strings(out)
	}
	return out
}

// Take returns a new column holding the given rows in order.
func (c *Column) Take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = make([]float64, len(rows))
		for i, r := range rows {
			out.Num[i] = c.Num[r]
		}
		return out
	}
	out.Str = make([]string, len(rows))
	for i, r := range rows {
		out.Str[i] = c.Str[r]
	}
	return out
}

// Frame is an ordered collection of columns with equal length.
type Frame struct {
	Name    string
	columns []*Column
	index   map[string]int
}

// NewFrame builds a frame, checking that columns have unique names and equal length.
func NewFrame(name string, columns ...*Column) (*Frame, error) {
	f := &Frame{Name: name, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := f.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddColumn appends c to the frame.
func (f *Frame) AddColumn(c *Column) error {
	if _, dup := f.index[c.Name]; dup {
		return errors.NewValidationError("column", "duplicate column name", c.Name)
	}
	if len(f.columns) > 0 && c.Len() != f.Rows() {
		return errors.NewDimensionError("Frame.AddColumn", f.Rows(), c.Len(), 0)
	}
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].Len()
}

// Cols returns the number of columns.
func (f *Frame) Cols() int {
	return len(f.columns)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice must not be modified.
func (f *Frame) Columns() []*Column {
	return f.columns
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Take returns a new frame with the given rows, in order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{Name: f.Name, index: make(map[string]int, len(f.columns))}
	for _, c := range f.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.Take(rows))
	}
	return out
}

// Head returns the first n rows (all rows when n exceeds the frame).
func (f *Frame) Head(n int) *Frame {
	if n > f.Rows() {
		n = f.Rows()
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return f.Take(rows)
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := &Frame{Name: f.Name, index: make(map[string]int, len(f.columns))}
	for _, c := range f.columns {
		if _, drop := skip[c.Name]; drop {
			continue
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c)
	}
	return out
}

// Select returns a frame with exactly the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{Name: f.Name, index: make(map[string]int, len(names))}
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			return nil, errors.NewValidationError("column", "column not found", n)
		}
		out.index[n] = len(out.columns)
		out.columns = append(out.columns, c)
	}
	return out, nil
}

// Records renders the frame as a header row followed by one row per record.
func (f *Frame) Records() [][]string {
	out := make([][]string, 0, f.Rows()+1)
	out = append(out, f.Names())
	for i := 0; i < f.Rows(); i++ {
		row := make([]string, len(f.columns))
		for j, c := range f.columns {
			row[j] = c.Value(i)
		}
		out = append(out, row)
	}
	return out
}

// WriteCSV writes the frame as CSV with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(f.Records()); err != nil {
		return errors.Wrap(err, "failed to write csv")
	}
	return nil
}
