package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"trialscope/internal/ingest"
)

func TestGeneratedDatasetsLoad(t *testing.T) {
	for _, name := range domainNames() {
		for _, format := range []ingest.Format{ingest.FormatJSON, ingest.FormatNDJSON} {
			t.Run(name+"/"+string(format), func(t *testing.T) {
				d := domains[name]
				var buf bytes.Buffer
				if err := newGenerator(d, 7).write(&buf, string(format), 50, nil); err != nil {
					t.Fatal(err)
				}
				src := ingest.NewBytesSource(d.name+"."+string(format), format, buf.Bytes())
				ds, err := ingest.Load(context.Background(), src, ingest.DefaultOptions(), nil)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if len(ds.Rows) != 50 || ds.RecordsDeclared != 50 {
					t.Fatalf("rows=%d declared=%d", len(ds.Rows), ds.RecordsDeclared)
				}
				if len(ds.Columns) != len(d.columns) || ds.Name != d.name {
					t.Fatalf("columns=%d name=%q", len(ds.Columns), ds.Name)
				}
				if len(ds.KeyColumns()) == 0 {
					t.Fatal("expected key columns")
				}
			})
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := newGenerator(domains["ae"], 42).write(&a, "ndjson", 20, nil); err != nil {
		t.Fatal(err)
	}
	if err := newGenerator(domains["ae"], 42).write(&b, "ndjson", 20, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("same seed produced different output")
	}
}

func TestWriteFileCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, codec := range []string{"gz", "zst", "xz"} {
		path := filepath.Join(dir, "lb.ndjson."+codec)
		err := writeFile(path, codec, func(w io.Writer) error {
			return newGenerator(domains["lb"], 1).write(w, "ndjson", 30, nil)
		})
		if err != nil {
			t.Fatalf("%s: %v", codec, err)
		}
		f, err := ingest.NewFile(path, "")
		if err != nil {
			t.Fatal(err)
		}
		ds, err := ingest.Load(context.Background(), f, ingest.DefaultOptions(), nil)
		if err != nil {
			t.Fatalf("%s load: %v", codec, err)
		}
		if len(ds.Rows) != 30 {
			t.Fatalf("%s rows=%d", codec, len(ds.Rows))
		}
	}
	if err := writeFile(filepath.Join(dir, "x"), "bz2", func(w io.Writer) error { return nil }); err == nil {
		t.Fatal("expected unknown compression error")
	}
}

func TestStopCutsOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := newGenerator(domains["dm"], 3).write(&buf, "ndjson", 5000, func() bool { return true }); err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 1 {
		t.Fatalf("expected only the metadata line, got %d lines", n)
	}
}
