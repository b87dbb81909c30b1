package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ohler55/ojg/oj"

	"trialscope/internal/model"
)

// Header is the metadata read before any rows are committed to memory.
type Header struct {
	Name    string
	Label   string
	Records int // -1 when the file does not declare a count
	Columns []model.Column
	// Attributes keeps the remaining top-level scalar metadata
	// (datasetJSONVersion, fileOID, studyOID, ...).
	Attributes map[string]any
}

// ReadHeader reads at most opts.HeaderBudget bytes of src and decodes the
// column metadata.
func ReadHeader(ctx context.Context, src Source, opts Options) (*Header, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, _, err := openDecoded(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	// one extra byte tells a file that fits the budget from a truncated one
	prefix := make([]byte, opts.HeaderBudget+1)
	n, err := io.ReadFull(r, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	complete := n <= opts.HeaderBudget
	if !complete {
		n = opts.HeaderBudget
	}
	prefix = prefix[:n]

	var doc []byte
	line := 0
	switch src.Format() {
	case FormatNDJSON:
		line = 1
		if i := bytes.IndexByte(prefix, '\n'); i >= 0 {
			doc = prefix[:i]
		} else if complete {
			doc = prefix
		} else {
			return nil, &ParseError{File: src.Name(), Line: 1, Err: fmt.Errorf("metadata line longer than %d bytes", opts.HeaderBudget)}
		}
	default:
		if off := findRowsOffset(prefix); off >= 0 {
			doc = make([]byte, 0, off+12)
			doc = append(doc, prefix[:off]...)
			doc = append(doc, `"rows":[]}`...)
		} else if complete {
			doc = prefix
		} else {
			return nil, &ParseError{File: src.Name(), Err: fmt.Errorf("rows array not found in the first %d bytes", opts.HeaderBudget)}
		}
	}
	v, err := oj.Parse(bytes.TrimSpace(doc))
	if err != nil {
		return nil, &ParseError{File: src.Name(), Line: line, Err: err}
	}
	meta, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{File: src.Name(), Line: line, Err: errors.New("metadata is not a JSON object")}
	}
	h, err := decodeHeader(meta)
	if err != nil {
		return nil, &ParseError{File: src.Name(), Line: line, Err: err}
	}
	return h, nil
}

func decodeHeader(meta map[string]any) (*Header, error) {
	h := &Header{Records: -1, Attributes: map[string]any{}}
	for k, v := range meta {
		switch k {
		case "columns", "rows":
		case "name":
			h.Name = model.Stringify(v)
		case "label":
			h.Label = model.Stringify(v)
		case "records":
			n, ok := asInt(v)
			if !ok {
				return nil, fmt.Errorf("records: expected integer, got %v", v)
			}
			h.Records = n
		default:
			switch v.(type) {
			case map[string]any, []any:
			default:
				h.Attributes[k] = v
			}
		}
	}
	raw, ok := meta["columns"].([]any)
	if !ok && meta["columns"] != nil {
		return nil, errors.New("columns: expected an array")
	}
	h.Columns = make([]model.Column, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("columns[%d]: expected an object", i)
		}
		c := model.Column{
			ItemOID:  str(m["itemOID"]),
			Name:     str(m["name"]),
			Label:    str(m["label"]),
			DataType: str(m["dataType"]),
		}
		if c.Name == "" {
			c.Name = c.ItemOID
		}
		if c.Name == "" {
			return nil, fmt.Errorf("columns[%d]: missing name", i)
		}
		if n, ok := asInt(m["length"]); ok {
			c.Length = &n
		}
		if n, ok := asInt(m["keySequence"]); ok {
			c.KeySequence = &n
		}
		h.Columns = append(h.Columns, c)
	}
	return h, nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return model.Stringify(v)
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	}
	return 0, false
}

// findRowsOffset returns the offset of the top-level "rows" key in a JSON
// object prefix, or -1. Keys nested deeper and string contents are skipped.
func findRowsOffset(b []byte) int {
	depth := 0
	inStr, esc := false, false
	start := -1
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				if depth == 1 && string(b[start+1:i]) == "rows" && followedByColon(b, i+1) {
					return start
				}
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
			start = i
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return -1
}

func followedByColon(b []byte, i int) bool {
	for ; i < len(b); i++ {
		switch b[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}
