package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trialscope/internal/util/logx"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want json|ndjson)", s)
}

// FormatFromName infers the format from the file name, ignoring a
// trailing compression extension.
func FormatFromName(name string) (Format, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for ext := range compressionExtensions {
		lower = strings.TrimSuffix(lower, ext)
	}
	switch {
	case strings.HasSuffix(lower, ".ndjson"), strings.HasSuffix(lower, ".jsonl"):
		return FormatNDJSON, true
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, true
	}
	return "", false
}

// Source is a byte-readable dataset file handle supplied by the caller.
// Open may be called more than once: the metadata phase and the row phase
// each read from the start.
type Source interface {
	Name() string
	Size() int64
	Format() Format
	Open() (io.ReadCloser, error)
}

// File is a Source backed by the local filesystem.
type File struct {
	Path   string
	format Format
	size   int64
}

func NewFile(path string, format Format) (*File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	f := &File{Path: path, format: format, size: st.Size()}
	if format == "" {
		if byName, ok := FormatFromName(path); ok {
			f.format = byName
			return f, nil
		}
		g, err := sniffSource(f)
		if err != nil {
			return nil, err
		}
		if g.Format == "" {
			return nil, fmt.Errorf("cannot infer format of %s; pass json or ndjson", filepath.Base(path))
		}
		logx.Debugf("ingest: %s sniffed as %s (confidence %.2f)", f.Name(), g.Format, g.Confidence)
		f.format = g.Format
	}
	return f, nil
}

func (f *File) Name() string                 { return filepath.Base(f.Path) }
func (f *File) Size() int64                  { return f.size }
func (f *File) Format() Format               { return f.format }
func (f *File) Open() (io.ReadCloser, error) { return os.Open(f.Path) }

// BytesSource serves an in-memory payload.
type BytesSource struct {
	name   string
	format Format
	data   []byte
}

func NewBytesSource(name string, format Format, data []byte) *BytesSource {
	return &BytesSource{name: name, format: format, data: data}
}

func (b *BytesSource) Name() string   { return b.name }
func (b *BytesSource) Size() int64    { return int64(len(b.data)) }
func (b *BytesSource) Format() Format { return b.format }
func (b *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
