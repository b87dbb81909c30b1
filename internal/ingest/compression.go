package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var compressionExtensions = map[string]Compression{
	".gz":  CompressionGzip,
	".zst": CompressionZstd,
	".xz":  CompressionXZ,
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

func detectCompression(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	}
	return CompressionNone
}

// countingReader tracks raw bytes consumed so progress can be reported
// against the on-disk size even when the payload is compressed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type decodedReader struct {
	io.Reader
	closers []func() error
	raw     *countingReader
}

func (d *decodedReader) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// consumed returns the number of raw (possibly compressed) bytes read so far.
func (d *decodedReader) consumed() int64 { return d.raw.n }

// openDecoded opens src and wraps it in a decompressor chosen by magic bytes.
func openDecoded(src Source) (*decodedReader, Compression, error) {
	f, err := src.Open()
	if err != nil {
		return nil, CompressionNone, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	raw := &countingReader{r: f}
	br := bufio.NewReaderSize(raw, 64*1024)
	head, _ := br.Peek(len(xzMagic))
	kind := detectCompression(head)
	d := &decodedReader{raw: raw, closers: []func() error{f.Close}}
	switch kind {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, kind, fmt.Errorf("gzip %s: %w", src.Name(), err)
		}
		d.Reader = gz
		d.closers = append([]func() error{gz.Close}, d.closers...)
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, kind, fmt.Errorf("zstd %s: %w", src.Name(), err)
		}
		d.Reader = zr
		d.closers = append([]func() error{func() error { zr.Close(); return nil }}, d.closers...)
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, kind, fmt.Errorf("xz %s: %w", src.Name(), err)
		}
		d.Reader = xr
	default:
		d.Reader = br
	}
	return d, kind, nil
}

// CompressionFromName reports the compression implied by the file extension.
// Opening a file always trusts the magic bytes instead.
func CompressionFromName(name string) Compression {
	lower := strings.ToLower(name)
	for ext, c := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			return c
		}
	}
	return CompressionNone
}
