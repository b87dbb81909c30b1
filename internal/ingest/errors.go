package ingest

import "fmt"

// ParseError reports a metadata prefix or JSON document that failed to parse.
// Line is set for NDJSON metadata failures.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RowLimitError is returned together with a row-less dataset when the
// declared record count exceeds the ceiling. It is not fatal: columns and
// metadata remain usable.
type RowLimitError struct {
	File     string
	Declared int
	Max      int
}

func (e *RowLimitError) Error() string {
	return fmt.Sprintf("%s contains %d rows, which exceeds the maximum limit of %d rows", e.File, e.Declared, e.Max)
}
