package model

import (
	"sort"
	"strings"
)

// Column describes one variable of a dataset. Columns are immutable once a
// file is loaded; rows refer to them by position.
type Column struct {
	ItemOID     string `json:"itemOID"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	DataType    string `json:"dataType"`
	Length      *int   `json:"length,omitempty"`
	KeySequence *int   `json:"keySequence,omitempty"`
}

// Row holds scalar values positionally aligned to the dataset columns.
type Row []any

// At returns the value at pos, or nil when the row is shorter than pos
// (empty rows from unparseable lines included).
func (r Row) At(pos int) any {
	if pos < 0 || pos >= len(r) {
		return nil
	}
	return r[pos]
}

// Dataset is the column metadata + row array pair loaded from one file.
type Dataset struct {
	Name    string   `json:"name,omitempty"`
	Label   string   `json:"label,omitempty"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"-"`
	// RecordsDeclared is the row count claimed by the metadata header, -1 when absent.
	RecordsDeclared int `json:"records"`

	index   map[string]int
	numeric []bool
}

// NewDataset builds the name -> position lookup and the per-column numeric
// flags. Rows must not be appended to afterwards.
func NewDataset(name, label string, cols []Column, rows []Row, declared int) *Dataset {
	ds := &Dataset{Name: name, Label: label, Columns: cols, Rows: rows, RecordsDeclared: declared}
	ds.index = make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := ds.index[c.Name]; !dup {
			ds.index[c.Name] = i
		}
	}
	ds.numeric = detectNumeric(cols, rows)
	return ds
}

// Index resolves a column name to its position.
func (d *Dataset) Index(name string) (int, bool) {
	if d == nil {
		return -1, false
	}
	i, ok := d.index[name]
	return i, ok
}

// IsNumeric reports whether every non-empty value of the column parses as a number.
func (d *Dataset) IsNumeric(pos int) bool {
	if d == nil || pos < 0 || pos >= len(d.numeric) {
		return false
	}
	return d.numeric[pos]
}

// ColumnNames returns names in load order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// KeyColumns returns the key variables ordered by KeySequence.
func (d *Dataset) KeyColumns() []Column {
	keys := make([]Column, 0, 4)
	for _, c := range d.Columns {
		if c.KeySequence != nil {
			keys = append(keys, c)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return *keys[i].KeySequence < *keys[j].KeySequence
	})
	return keys
}

func detectNumeric(cols []Column, rows []Row) []bool {
	out := make([]bool, len(cols))
	if len(rows) == 0 {
		for i, c := range cols {
			out[i] = NumericDataType(c.DataType)
		}
		return out
	}
	for i := range cols {
		out[i] = true
	}
	for _, r := range rows {
		for i := range cols {
			if !out[i] {
				continue
			}
			if !IsNumericValue(r.At(i)) {
				out[i] = false
			}
		}
	}
	return out
}

// NumericDataType reports declared numeric types, used when there are no rows to inspect.
func NumericDataType(t string) bool {
	switch strings.ToLower(t) {
	case "integer", "float", "double", "decimal":
		return true
	}
	return false
}
