package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"trialscope/internal/model"
)

type Format string

const (
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
	FormatJSON   Format = "json"
	FormatXLSX   Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatNDJSON, FormatJSON, FormatXLSX:
		return f, nil
	case "jsonl":
		return FormatNDJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv|ndjson|json|xlsx)", s)
}

// FormatFromPath infers the format from the output file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer export format from %q", path)
	}
	return ParseFormat(ext)
}

// Table is the current view of a dataset: the projected columns in display
// order and the filtered, sorted rows.
type Table struct {
	Name      string
	Label     string
	Columns   []model.Column
	Positions []int // row position of each column
	Rows      []model.Row
}

// NewTable projects rows onto visible (all columns when empty). Unknown
// names are an error.
func NewTable(ds *model.Dataset, rows []model.Row, visible []string) (Table, error) {
	if ds == nil {
		return Table{}, errors.New("no dataset")
	}
	t := Table{Name: ds.Name, Label: ds.Label, Rows: rows}
	if len(visible) == 0 {
		visible = ds.ColumnNames()
	}
	for _, name := range visible {
		pos, ok := ds.Index(name)
		if !ok {
			return Table{}, fmt.Errorf("unknown column: %s", name)
		}
		t.Columns = append(t.Columns, ds.Columns[pos])
		t.Positions = append(t.Positions, pos)
	}
	return t, nil
}

func (t Table) header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func (t Table) cells(r model.Row) []any {
	out := make([]any, len(t.Positions))
	for i, p := range t.Positions {
		out[i] = r.At(p)
	}
	return out
}

// Write encodes t to w.
func Write(w io.Writer, f Format, t Table) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatNDJSON:
		return writeNDJSON(w, t)
	case FormatJSON:
		return writeJSON(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// ToFile writes t to path, inferring the format from the extension when f
// is empty.
func ToFile(path string, f Format, t Table) error {
	if f == "" {
		var err error
		if f, err = FormatFromPath(path); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, f, t); err != nil {
		file.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return file.Close()
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header()); err != nil {
		return err
	}
	rec := make([]string, len(t.Positions))
	for _, r := range t.Rows {
		for i, p := range t.Positions {
			rec[i] = model.Stringify(r.At(p))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type metadata struct {
	Name    string         `json:"name,omitempty"`
	Label   string         `json:"label,omitempty"`
	Records int            `json:"records"`
	Columns []model.Column `json:"columns"`
}

func (t Table) metadata() metadata {
	return metadata{Name: t.Name, Label: t.Label, Records: len(t.Rows), Columns: t.Columns}
}

// writeNDJSON emits the metadata record then one array per row, the layout
// the ingest package reads back.
func writeNDJSON(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(t.metadata()); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := enc.Encode(t.cells(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeJSON(w io.Writer, t Table) error {
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = t.cells(r)
	}
	doc := struct {
		metadata
		Rows [][]any `json:"rows"`
	}{t.metadata(), rows}
	bw := bufio.NewWriter(w)
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		return err
	}
	return bw.Flush()
}

// SheetName is the worksheet xlsx exports write to.
const SheetName = "Data"

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	head := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = excelize.Cell{StyleID: bold, Value: c.Name}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := t.cells(r)
		for j, v := range vals {
			switch v.(type) {
			case string, int64, float64, bool, nil:
			default:
				vals[j] = model.Stringify(v)
			}
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
