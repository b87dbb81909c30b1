package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// isolate keeps user config and TRIALSCOPE_* settings out of the test and
// returns the absolute testdata directory.
func isolate(t *testing.T) string {
	t.Helper()
	data, err := filepath.Abs(filepath.Join("..", "..", "testdata"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(dir)
	return data
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestQuery(t *testing.T) {
	data := isolate(t)
	out, errOut, err := run(t, "query", filepath.Join(data, "lb.json"), "--filter", `LBTESTCD = "GLUC" and LBSEQ > 20`)
	if err != nil {
		t.Fatalf("query: %v\n%s", err, errOut)
	}
	for _, want := range []string{"USUBJID", "CDISC002", "CDISC001", "Showing 1-2 of 2 rows (page 1 of 1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ALB") {
		t.Errorf("filtered row printed:\n%s", out)
	}
	if !strings.Contains(errOut, "Showing 2 of 3 rows") {
		t.Errorf("filter message missing: %q", errOut)
	}
}

func TestQueryByNameSortAndColumns(t *testing.T) {
	data := isolate(t)
	out, _, err := run(t, "query", "lb.ndjson", "--dir", data, "--sort", "LBSEQ desc", "--columns", "LBSEQ")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "USUBJID") {
		t.Errorf("hidden column printed:\n%s", out)
	}
	i30, i25, i10 := strings.Index(out, "30"), strings.Index(out, "25"), strings.Index(out, "10")
	if i30 < 0 || !(i30 < i25 && i25 < i10) {
		t.Errorf("rows not sorted descending:\n%s", out)
	}
}

func TestQueryPaging(t *testing.T) {
	data := isolate(t)
	out, _, err := run(t, "query", filepath.Join(data, "lb.json"), "--page-size", "2", "--page", "9")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Showing 3-3 of 3 rows (page 2 of 2)") {
		t.Errorf("page not clamped:\n%s", out)
	}
}

func TestQueryErrors(t *testing.T) {
	data := isolate(t)
	lb := filepath.Join(data, "lb.json")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown filter column", []string{"query", lb, "-f", "AGE > 3"}, "unknown column: AGE"},
		{"unknown sort column", []string{"query", lb, "-s", "AGE"}, "unknown sort column: AGE"},
		{"unknown projected column", []string{"query", lb, "-c", "AGE"}, "unknown column: AGE"},
		{"missing dataset", []string{"query", "dm.json", "--dir", data}, `no dataset named "dm.json"`},
		{"bad config", []string{"query", lb, "--page-size", "0"}, "page_size must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRowLimitWarns(t *testing.T) {
	data := isolate(t)
	out, errOut, err := run(t, "query", filepath.Join(data, "lb.json"), "--max-rows", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Errorf("no row limit warning: %q", errOut)
	}
	if !strings.Contains(out, "Showing 0 of 0 rows") {
		t.Errorf("rows loaded over the ceiling:\n%s", out)
	}
}

func TestValues(t *testing.T) {
	data := isolate(t)
	out, _, err := run(t, "values", filepath.Join(data, "lb.json"), "--columns", "LBTESTCD", "--format", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"rows: 3", "name: LBTESTCD", "value: GLUC", "frequency: 2", "percent: 66.7"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "USUBJID") {
		t.Errorf("unselected column reported:\n%s", out)
	}

	out, _, err = run(t, "values", filepath.Join(data, "lb.json"), "--value-cap", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "LBSEQ (numeric): more than 2 distinct values") {
		t.Errorf("cap not reported:\n%s", out)
	}
	if !strings.Contains(out, "USUBJID (text): 2 distinct values in 3 rows") {
		t.Errorf("complete column not listed:\n%s", out)
	}
}

func TestExport(t *testing.T) {
	data := isolate(t)
	lb := filepath.Join(data, "lb.json")

	out, _, err := run(t, "export", lb, "-f", `USUBJID = "CDISC001"`, "-c", "USUBJID,LBSEQ", "-s", "LBSEQ desc", "-o", "-")
	if err != nil {
		t.Fatal(err)
	}
	if want := "USUBJID,LBSEQ\nCDISC001,30\nCDISC001,10\n"; out != want {
		t.Errorf("csv = %q, want %q", out, want)
	}

	path := filepath.Join(t.TempDir(), "lb.xlsx")
	if _, _, err := run(t, "export", lb, "-o", path); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][2] != "LBTESTCD" {
		t.Errorf("xlsx rows = %v", rows)
	}

	if _, _, err := run(t, "export", lb, "-o", "out.txt"); err == nil {
		t.Errorf("unknown extension accepted")
	}
}

func TestList(t *testing.T) {
	data := isolate(t)
	out, _, err := run(t, "list", "--dir", data)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"lb.json", "lb.ndjson", "ndjson", "none"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}
}

func TestListExcludeAndMaxFiles(t *testing.T) {
	data := isolate(t)
	study := t.TempDir()
	src, err := os.ReadFile(filepath.Join(data, "lb.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"sdtm/lb.json", "sdtm/vs.json", "archive/lb_old.json", "ae.json"} {
		p := filepath.Join(study, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, src, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, _, err := run(t, "list", "--dir", study, "--exclude", "archive/**")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "lb_old.json") {
		t.Errorf("excluded file listed:\n%s", out)
	}
	if !strings.Contains(out, "3 datasets in 2 folders") {
		t.Errorf("summary missing:\n%s", out)
	}
	if strings.Index(out, "ae.json") > strings.Index(out, "vs.json") {
		t.Errorf("root datasets should come first:\n%s", out)
	}

	out, _, err = run(t, "list", "--dir", study, "--max-files", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 datasets in 1 folders") || !strings.Contains(out, "stopped at --max-files 1") {
		t.Errorf("max files not applied:\n%s", out)
	}

	// excluded datasets cannot be opened by name either
	if _, _, err := run(t, "query", "lb_old.json", "--dir", study, "--exclude", "archive/**"); err == nil {
		t.Error("excluded dataset resolved by name")
	}
}

func TestQuerySniffsFormat(t *testing.T) {
	data := isolate(t)
	b, err := os.ReadFile(filepath.Join(data, "lb.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "lb-export.dat")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	out, errOut, err := run(t, "query", p)
	if err != nil {
		t.Fatalf("query: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "Showing 1-3 of 3 rows") {
		t.Errorf("sniffed dataset not loaded:\n%s", out)
	}
	if out, _, err := run(t, "query", p, "--input-format", "ndjson"); err != nil || !strings.Contains(out, "Showing 1-3 of 3 rows") {
		t.Errorf("forced ndjson: %v\n%s", err, out)
	}
	if _, _, err := run(t, "query", p, "--input-format", "csv"); err == nil || !strings.Contains(err.Error(), "input_format") {
		t.Errorf("bad input format: %v", err)
	}
	notes := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(notes, []byte("USUBJID,LBSEQ\n"), 0o644)
	if _, _, err := run(t, "query", notes); err == nil || !strings.Contains(err.Error(), "cannot infer format") {
		t.Errorf("unrecognised content: %v", err)
	}
}

func TestAsk(t *testing.T) {
	data := isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "test",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": `{"filter":"LBSEQ >= 25","explanation":"later samples"}`},
			}},
		})
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TRIALSCOPE_OPENAI_BASE_URL", srv.URL+"/v1")

	out, errOut, err := run(t, "ask", filepath.Join(data, "lb.json"), "which", "samples", "are", "late?", "--apply")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, errOut)
	}
	if !strings.HasPrefix(out, "LBSEQ >= 25\n") || !strings.Contains(out, "Showing 1-2 of 2 rows") {
		t.Errorf("ask output:\n%s", out)
	}
	if !strings.Contains(errOut, "later samples") {
		t.Errorf("explanation missing: %q", errOut)
	}

	if _, _, err := run(t, "ask", filepath.Join(data, "lb.json"), "anything", "--offline"); err == nil || !strings.Contains(err.Error(), "assistant disabled") {
		t.Errorf("offline ask: %v", err)
	}
}

func TestConfigSaveAndVersion(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ts.yaml")
	if _, _, err := run(t, "config", "save", path, "--page-size", "45"); err != nil {
		t.Fatal(err)
	}
	out, _, err := run(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "page_size: 45") {
		t.Errorf("saved page size not loaded:\n%s", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	out, _, err = run(t, "version")
	if err != nil || !strings.HasPrefix(out, "trialscope ") {
		t.Errorf("version = %q, %v", out, err)
	}
}
