package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// missingTokens are the cell values read as missing, following pandas' default na_values.
var missingTokens = map[string]struct{}{
	"":        {},
	"NA":      {},
	"N/A":     {},
	"n/a":     {},
	"NaN":     {},
	"nan":     {},
	"-NaN":    {},
	"-nan":    {},
	"null":    {},
	"NULL":    {},
	"None":    {},
	"#N/A":    {},
	"#NA":     {},
	"<NA>":    {},
	"1.#QNAN": {},
}

type readOptions struct {
	name      string
	encoding  string
	delimiter rune
}

// ReadOption configures ReadCSV.
type ReadOption func(*readOptions)

// WithName sets the frame name reported in errors (usually the uploaded file name).
func WithName(name string) ReadOption {
	return func(o *readOptions) { o.name = name }
}

// WithEncoding sets the source charset, using WHATWG labels such as "windows-1252",
// "latin1", "gbk" or "shift_jis". Empty and "utf-8" mean UTF-8.
func WithEncoding(label string) ReadOption {
	return func(o *readOptions) { o.encoding = label }
}

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) ReadOption {
	return func(o *readOptions) { o.delimiter = r }
}

// lookupEncoding resolves a charset label. UTF-8 input gets a BOM-stripping decoder.
func lookupEncoding(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	}
	return htmlindex.Get(label)
}

// ReadCSV parses a CSV document with a header row into a Frame, inferring column kinds.
func ReadCSV(r io.Reader, opts ...ReadOption) (*Frame, error) {
	o := readOptions{name: "upload", delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := lookupEncoding(o.encoding)
	if err != nil {
		return nil, errors.NewDatasetError(o.name, 0, fmt.Sprintf("unsupported encoding %q", o.encoding), err)
	}

	cr := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	cr.Comma = o.delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewDatasetError(o.name, 0, "file is empty", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, csvError(o.name, err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(o.name, err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errors.NewDatasetError(o.name, 0, "no data rows after the header", errors.ErrEmptyData)
	}

	names := mangleHeader(header)
	frame := &Frame{Name: o.name, index: make(map[string]int, len(names))}
	for j, name := range names {
		cells := make([]string, len(rows))
		for i, rec := range rows {
			cells[i] = rec[j]
		}
		frame.index[name] = j
		frame.columns = append(frame.columns, inferColumn(name, cells))
	}
	return frame, nil
}

func csvError(source string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return errors.NewDatasetError(source, pe.Line, "malformed csv", pe.Err)
	}
	return errors.NewDatasetError(source, 0, "failed to read csv", err)
}

// mangleHeader names empty header cells "Unnamed: i" and suffixes duplicates with ".1", ".2", ...
func mangleHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[name]; dup {
			base, k := name, seen[name]
			for {
				k++
				cand := fmt.Sprintf("%s.%d", base, k)
				if _, taken := seen[cand]; !taken {
					seen[base] = k
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

// IsMissingToken reports whether a raw cell counts as missing.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

func inferColumn(name string, cells []string) *Column {
	nums := make([]float64, len(cells))
	for i, raw := range cells {
		if IsMissingToken(raw) {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			strs := make([]string, len(cells))
			for k, s := range cells {
				if !IsMissingToken(s) {
					strs[k] = s
				}
			}
			return NewCategoricalColumn(name, strs)
		}
		nums[i] = v
	}
	return NewNumericColumn(name, nums)
}
