package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trialscope/internal/ingest"
)

const pattern = "**/*.{json,ndjson,jsonl}{,.gz,.zst,.xz}"

func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := tree(t,
		"sdtm/lb.json",
		"sdtm/dm.ndjson.gz",
		"adam/adsl.jsonl.zst",
		"adam/notes.txt",
		"define.json",
	)
	c, err := Discover(root, Options{Pattern: pattern})
	if err != nil {
		t.Fatal(err)
	}
	var rels []string
	for _, e := range c.Entries {
		rels = append(rels, e.Rel)
	}
	want := "define.json adam/adsl.jsonl.zst sdtm/dm.ndjson.gz sdtm/lb.json"
	if got := strings.Join(rels, " "); got != want {
		t.Fatalf("entries: %s", got)
	}
	dm, err := c.Find("dm.ndjson.gz")
	if err != nil {
		t.Fatal(err)
	}
	if dm.Format != ingest.FormatNDJSON || dm.Compression != ingest.CompressionGzip || dm.Folder != "sdtm" || dm.Size != 2 {
		t.Fatalf("dm entry: %+v", dm)
	}
	if got := strings.Join(c.Folders(), ","); got != ".,adam,sdtm" {
		t.Fatalf("folders: %s", got)
	}
	if n := len(c.InFolder("sdtm")); n != 2 {
		t.Fatalf("sdtm entries: %d", n)
	}
}

func TestDiscoverOptions(t *testing.T) {
	root := tree(t, "a/lb.json", "a/ae.json", "b/lb.json", "archive/old.json")
	c, err := Discover(root, Options{Pattern: pattern, Exclude: []string{"archive/**"}, MaxFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries) != 2 {
		t.Fatalf("max files: %d", len(c.Entries))
	}
	c, err = Discover(root, Options{Pattern: pattern, Exclude: []string{"archive/**"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range c.Entries {
		if e.Folder == "archive" {
			t.Fatalf("excluded entry listed: %s", e.Rel)
		}
	}
	if _, err := c.Find("lb.json"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity, got %v", err)
	}
	if e, err := c.Find("b/lb.json"); err != nil || e.Folder != "b" {
		t.Fatalf("relative lookup: %+v %v", e, err)
	}
	if _, err := c.Find("vs.json"); err == nil {
		t.Fatal("expected not found")
	}
}

func TestDiscoverErrors(t *testing.T) {
	root := tree(t, "lb.json")
	if _, err := Discover(root, Options{}); err == nil {
		t.Fatal("empty pattern accepted")
	}
	if _, err := Discover(root, Options{Pattern: "[a-"}); err == nil {
		t.Fatal("invalid pattern accepted")
	}
	if _, err := Discover(filepath.Join(root, "lb.json"), Options{Pattern: pattern}); err == nil {
		t.Fatal("file accepted as root")
	}
	if _, err := Discover(filepath.Join(root, "missing"), Options{Pattern: pattern}); err == nil {
		t.Fatal("missing root accepted")
	}
}

func TestEntrySource(t *testing.T) {
	root := tree(t, "lb.ndjson")
	c, err := Discover(root, Options{Pattern: pattern})
	if err != nil {
		t.Fatal(err)
	}
	src, err := c.Entries[0].Source()
	if err != nil {
		t.Fatal(err)
	}
	if src.Format() != ingest.FormatNDJSON || src.Name() != "lb.ndjson" {
		t.Fatalf("source: %s %s", src.Name(), src.Format())
	}
}
