package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ohler55/ojg/oj"

	"trialscope/internal/model"
	"trialscope/internal/util/logx"
)

const (
	DefaultMaxRows      = 460000
	DefaultChunkSize    = 1 << 20
	DefaultHeaderBudget = 64 << 10
)

type Options struct {
	MaxRows      int // row ceiling checked against the declared record count
	ChunkSize    int // bytes read between progress reports
	HeaderBudget int // bytes available to the metadata phase
}

func DefaultOptions() Options {
	return Options{MaxRows: DefaultMaxRows, ChunkSize: DefaultChunkSize, HeaderBudget: DefaultHeaderBudget}
}

func (o Options) withDefaults() Options {
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.HeaderBudget <= 0 {
		o.HeaderBudget = DefaultHeaderBudget
	}
	return o
}

type Phase string

const (
	PhaseReading    Phase = "reading"
	PhaseParsing    Phase = "parsing"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
)

// Progress is advisory: Current never decreases within one load.
type Progress struct {
	Current int
	Phase   Phase
	Message string
}

type tracker struct {
	cur int
	fn  func(Progress)
}

func (t *tracker) report(pct int, phase Phase, msg string) {
	if pct > 100 {
		pct = 100
	}
	if pct < t.cur {
		pct = t.cur
	}
	t.cur = pct
	if t.fn != nil {
		t.fn(Progress{Current: pct, Phase: phase, Message: msg})
	}
}

// Load reads the metadata header, checks the row ceiling and then reads the
// rows in ChunkSize pieces, checking ctx between chunks. When the declared
// count is over the ceiling the returned dataset has columns but no rows and
// the error is a *RowLimitError.
func Load(ctx context.Context, src Source, opts Options, onProgress func(Progress)) (*model.Dataset, error) {
	opts = opts.withDefaults()
	t := &tracker{fn: onProgress}
	t.report(0, PhaseReading, fmt.Sprintf("Reading metadata of %s", src.Name()))
	h, err := ReadHeader(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	logx.Infof("ingest: %s header columns=%d records=%d", src.Name(), len(h.Columns), h.Records)
	if h.Records > opts.MaxRows {
		t.report(100, PhaseDone, "Row limit exceeded")
		logx.Warnf("ingest: %s declares %d rows (max %d); rows not loaded", src.Name(), h.Records, opts.MaxRows)
		return model.NewDataset(h.Name, h.Label, h.Columns, nil, h.Records), &RowLimitError{File: src.Name(), Declared: h.Records, Max: opts.MaxRows}
	}

	var rows []model.Row
	switch src.Format() {
	case FormatNDJSON:
		rows, err = loadNDJSON(ctx, src, opts, t)
	default:
		var full *Header
		rows, full, err = loadJSON(ctx, src, opts, t)
		// keys after "rows" are cut from the metadata prefix
		if full != nil && len(h.Columns) == 0 {
			logx.Debugf("ingest: %s columns follow the rows; using the parsed document", src.Name())
			h = full
		}
	}
	var limit *RowLimitError
	if errors.As(err, &limit) {
		t.report(100, PhaseDone, "Row limit exceeded")
		return model.NewDataset(h.Name, h.Label, h.Columns, nil, h.Records), err
	}
	if err != nil {
		return nil, err
	}
	t.report(95, PhaseFinalizing, fmt.Sprintf("Indexing %d rows", len(rows)))
	if h.Records >= 0 && h.Records != len(rows) {
		logx.Warnf("ingest: %s declares %d rows but contains %d", src.Name(), h.Records, len(rows))
	}
	ds := model.NewDataset(h.Name, h.Label, h.Columns, rows, h.Records)
	t.report(100, PhaseDone, fmt.Sprintf("Loaded %d rows", len(rows)))
	return ds, nil
}

// readChunks feeds fn with ChunkSize pieces of the decoded payload.
func readChunks(ctx context.Context, src Source, opts Options, t *tracker, span int, fn func([]byte) error) error {
	r, _, err := openDecoded(src)
	if err != nil {
		return err
	}
	defer r.Close()
	buf := make([]byte, opts.ChunkSize)
	size := src.Size()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := fn(buf[:n]); err != nil {
				return err
			}
		}
		if size > 0 {
			t.report(int(int64(span)*r.consumed()/size), PhaseReading, fmt.Sprintf("Reading %s", src.Name()))
		}
		if rerr == io.EOF || errors.Is(rerr, io.ErrUnexpectedEOF) {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read %s: %w", src.Name(), rerr)
		}
	}
}

func loadNDJSON(ctx context.Context, src Source, opts Options, t *tracker) ([]model.Row, error) {
	var (
		rows    []model.Row
		pending []byte
		lineNo  int
		bad     int
	)
	handle := func(line []byte) error {
		lineNo++
		if lineNo == 1 {
			return nil // metadata record
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return nil
		}
		row, ok := parseRow(line)
		if !ok {
			bad++
			logx.Debugf("ingest: %s line %d is not a JSON array; kept as empty row", src.Name(), lineNo)
		}
		rows = append(rows, row)
		if len(rows) > opts.MaxRows {
			return &RowLimitError{File: src.Name(), Declared: len(rows), Max: opts.MaxRows}
		}
		return nil
	}
	err := readChunks(ctx, src, opts, t, 90, func(chunk []byte) error {
		pending = append(pending, chunk...)
		last := bytes.LastIndexByte(pending, '\n')
		if last < 0 {
			return nil
		}
		complete := pending[:last]
		for len(complete) > 0 {
			i := bytes.IndexByte(complete, '\n')
			if i < 0 {
				if err := handle(complete); err != nil {
					return err
				}
				break
			}
			if err := handle(complete[:i]); err != nil {
				return err
			}
			complete = complete[i+1:]
		}
		pending = append(pending[:0], pending[last+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		if err := handle(pending); err != nil {
			return nil, err
		}
	}
	if bad > 0 {
		logx.Warnf("ingest: %s had %d unparseable lines", src.Name(), bad)
	}
	return rows, nil
}

func parseRow(line []byte) (model.Row, bool) {
	v, err := oj.Parse(line)
	if err != nil {
		return model.Row{}, false
	}
	arr, ok := v.([]any)
	if !ok {
		return model.Row{}, false
	}
	return model.Row(arr), true
}

func loadJSON(ctx context.Context, src Source, opts Options, t *tracker) ([]model.Row, *Header, error) {
	var doc bytes.Buffer
	if sz := src.Size(); sz > 0 && sz < int64(1<<31) {
		doc.Grow(int(sz))
	}
	err := readChunks(ctx, src, opts, t, 80, func(chunk []byte) error {
		doc.Write(chunk)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	t.report(80, PhaseParsing, fmt.Sprintf("Parsing %s", src.Name()))
	v, err := oj.Parse(doc.Bytes())
	if err != nil {
		return nil, nil, &ParseError{File: src.Name(), Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil, &ParseError{File: src.Name(), Err: errors.New("document is not a JSON object")}
	}
	h, err := decodeHeader(obj)
	if err != nil {
		return nil, nil, &ParseError{File: src.Name(), Err: err}
	}
	raw, _ := obj["rows"].([]any)
	if len(raw) > opts.MaxRows {
		return nil, h, &RowLimitError{File: src.Name(), Declared: len(raw), Max: opts.MaxRows}
	}
	rows := make([]model.Row, len(raw))
	for i, r := range raw {
		if arr, ok := r.([]any); ok {
			rows[i] = model.Row(arr)
		} else {
			rows[i] = model.Row{}
		}
	}
	return rows, h, nil
}

// Outcome is the terminal message of Read.
type Outcome struct {
	Dataset *model.Dataset
	Err     error
}

// Read runs Load on its own goroutine. Progress updates are dropped when
// the consumer lags; the outcome is always delivered.
func Read(ctx context.Context, src Source, opts Options) (<-chan Progress, <-chan Outcome) {
	progress := make(chan Progress, 16)
	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		defer close(progress)
		ds, err := Load(ctx, src, opts, func(p Progress) {
			select {
			case progress <- p:
			default:
			}
		})
		done <- Outcome{Dataset: ds, Err: err}
	}()
	return progress, done
}
