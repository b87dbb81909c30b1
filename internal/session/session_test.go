package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trialscope/internal/filter"
	"trialscope/internal/freq"
	"trialscope/internal/ingest"
	"trialscope/internal/model"
	"trialscope/internal/view"
)

func lb() *model.Dataset {
	cols := []model.Column{{Name: "USUBJID"}, {Name: "LBSEQ", DataType: "integer"}}
	rows := []model.Row{{"CDISC001", int64(10)}, {"CDISC002", int64(25)}, {"CDISC001", int64(30)}}
	return model.NewDataset("LB", "", cols, rows, 3)
}

func loaded(t *testing.T) State {
	t.Helper()
	s := Reduce(New(0), FileSelected{File: "lb.json"})
	ds := lb()
	idx, err := freq.Build(context.Background(), ds.Columns, ds.Rows, 0)
	if err != nil {
		t.Fatal(err)
	}
	s = Reduce(s, LoadFinished{Gen: s.LoadGen, Dataset: ds, Values: idx})
	if !s.Ready() {
		t.Fatalf("not ready: %+v", s)
	}
	return s
}

func TestFileSelectedResets(t *testing.T) {
	s := loaded(t)
	s = Reduce(s, SortRequested{Column: "LBSEQ"})
	s = Reduce(s, FilterStarted{Query: "LBSEQ > 1"})
	s = Reduce(s, FilterFinished{Gen: s.LoadGen, FilterGen: s.FilterGen, Query: "LBSEQ > 1", Rows: s.Dataset.Rows[1:], Result: filter.Result{Success: true}})
	gen := s.LoadGen
	s = Reduce(s, FileSelected{File: "dm.json"})
	if s.LoadGen != gen+1 || !s.Loading || s.File != "dm.json" {
		t.Fatalf("selection: %+v", s)
	}
	if s.Dataset != nil || s.Filter != "" || len(s.Sort) != 0 || s.Page != 1 || s.Filtered != nil || s.Projection != nil {
		t.Fatalf("state not reset: %+v", s)
	}
	if s.PageSize != view.DefaultPageSize {
		t.Fatalf("page size %d", s.PageSize)
	}
}

func TestStaleLoadIgnored(t *testing.T) {
	s := Reduce(New(0), FileSelected{File: "a.json"})
	first := s.LoadGen
	s = Reduce(s, FileSelected{File: "b.json"})
	s = Reduce(s, LoadProgressed{Gen: first, Progress: ingest.Progress{Current: 90}})
	if s.Progress.Current != 0 {
		t.Fatalf("stale progress applied")
	}
	s = Reduce(s, LoadFinished{Gen: first, Dataset: lb()})
	if s.Dataset != nil || !s.Loading {
		t.Fatalf("stale completion overwrote state of b.json")
	}
	s = Reduce(s, LoadProgressed{Gen: s.LoadGen, Progress: ingest.Progress{Current: 40}})
	s = Reduce(s, LoadProgressed{Gen: s.LoadGen, Progress: ingest.Progress{Current: 30}})
	if s.Progress.Current != 40 {
		t.Fatalf("progress went backwards: %d", s.Progress.Current)
	}
	s = Reduce(s, LoadFinished{Gen: s.LoadGen, Dataset: lb()})
	if s.Dataset == nil || s.Loading || len(s.Sorted) != 3 {
		t.Fatalf("current completion not applied: %+v", s)
	}
}

func TestLoadOutcomes(t *testing.T) {
	s := Reduce(New(0), FileSelected{File: "big.json"})
	cols := []model.Column{{Name: "A"}}
	over := model.NewDataset("BIG", "", cols, nil, 460001)
	limit := &ingest.RowLimitError{File: "big.json", Declared: 460001, Max: 460000}
	got := Reduce(s, LoadFinished{Gen: s.LoadGen, Dataset: over, Err: limit})
	if got.Dataset == nil || len(got.Dataset.Columns) != 1 || len(got.Dataset.Rows) != 0 {
		t.Fatalf("row limit should keep columns: %+v", got)
	}
	if got.Notice != limit.Error() || got.Err != "" {
		t.Fatalf("notice %q err %q", got.Notice, got.Err)
	}

	perr := &ingest.ParseError{File: "bad.json", Err: errors.New("boom")}
	got = Reduce(s, LoadFinished{Gen: s.LoadGen, Err: perr})
	if got.Dataset != nil || got.Err != perr.Error() || got.Loading {
		t.Fatalf("parse failure: %+v", got)
	}
}

func TestFilterFlow(t *testing.T) {
	s := loaded(t)
	s = Reduce(s, PageRequested{Page: 1})
	s = Reduce(s, FilterStarted{Query: `USUBJID = "CDISC001"`})
	if !s.Filtering || s.PendingQuery == "" {
		t.Fatalf("filter not started")
	}
	rows, res := filter.Run(context.Background(), s.PendingQuery, s.Dataset, filter.ApplyOptions{})
	s = Reduce(s, FilterFinished{Gen: s.LoadGen, FilterGen: s.FilterGen, Query: s.PendingQuery, Rows: rows, Result: res})
	if s.Filtering || s.Filter != `USUBJID = "CDISC001"` || len(s.Filtered) != 2 {
		t.Fatalf("filter not applied: %+v", s)
	}

	before := s
	s = Reduce(s, FilterStarted{Query: "NOPE = 1"})
	rows, res = filter.Run(context.Background(), s.PendingQuery, s.Dataset, filter.ApplyOptions{})
	s = Reduce(s, FilterFinished{Gen: s.LoadGen, FilterGen: s.FilterGen, Query: "NOPE = 1", Rows: rows, Result: res})
	if s.FilterResult == nil || s.FilterResult.Success {
		t.Fatalf("failure not reported")
	}
	if s.Filter != before.Filter || len(s.Filtered) != len(before.Filtered) || len(s.Sorted) != 2 {
		t.Fatalf("failed filter changed the filtered set: %+v", s)
	}
}

func TestStaleFilterIgnored(t *testing.T) {
	s := loaded(t)
	s = Reduce(s, FilterStarted{Query: "LBSEQ > 1"})
	old := s.FilterGen
	s = Reduce(s, FilterStarted{Query: "LBSEQ > 20"})
	s = Reduce(s, FilterFinished{Gen: s.LoadGen, FilterGen: old, Query: "LBSEQ > 1", Rows: s.Dataset.Rows, Result: filter.Result{Success: true}})
	if !s.Filtering || s.Filter != "" {
		t.Fatalf("superseded filter applied: %+v", s)
	}

	// a filter from the previous file must not land on the new one
	loadGen, filterGen := s.LoadGen, s.FilterGen
	s = Reduce(s, FileSelected{File: "other.json"})
	s = Reduce(s, LoadFinished{Gen: s.LoadGen, Dataset: lb()})
	s = Reduce(s, FilterFinished{Gen: loadGen, FilterGen: filterGen, Query: "LBSEQ > 20", Rows: nil, Result: filter.Result{Success: true}})
	if len(s.Filtered) != 3 || s.Filter != "" {
		t.Fatalf("filter from a previous file applied: %+v", s)
	}
}

func TestSortAndPage(t *testing.T) {
	cols := []model.Column{{Name: "K"}}
	rows := make([]model.Row, 70)
	for i := range rows {
		rows[i] = model.Row{fmt.Sprintf("%02d", 69-i)}
	}
	s := Reduce(New(30), FileSelected{File: "k.json"})
	s = Reduce(s, LoadFinished{Gen: s.LoadGen, Dataset: model.NewDataset("K", "", cols, rows, -1)})
	s = Reduce(s, PageRequested{Page: 99})
	if s.Page != 3 {
		t.Fatalf("page not clamped: %d", s.Page)
	}
	s = Reduce(s, SortRequested{Column: "K"})
	if s.Page != 1 || s.Sorted[0][0] != "00" {
		t.Fatalf("asc sort: page=%d first=%v", s.Page, s.Sorted[0][0])
	}
	win, info := s.Window()
	if len(win) != 30 || info.TotalPages != 3 {
		t.Fatalf("window %d %+v", len(win), info)
	}
	s = Reduce(s, SortRequested{Column: "K"})
	if s.Sorted[0][0] != "69" {
		t.Fatalf("desc sort first=%v", s.Sorted[0][0])
	}
	s = Reduce(s, SortRequested{Column: "K"})
	if len(s.Sort) != 0 || s.Sorted[0][0] != "69" {
		t.Fatalf("sort off should restore load order")
	}
	if s.Dataset.Rows[0][0] != "69" {
		t.Fatalf("dataset rows reordered")
	}
}

func TestSortIgnoresUnknownColumns(t *testing.T) {
	s := loaded(t)
	next := Reduce(s, SortRequested{Column: "AGE"})
	if len(next.Sort) != 0 {
		t.Fatalf("unknown column added to sort: %v", next.Sort)
	}
	next = Reduce(s, SortChanged{Spec: view.SortSpec{{Column: "AGE", Direction: view.Asc}, {Column: "LBSEQ", Direction: view.Desc}}})
	if len(next.Sort) != 1 || next.Sort[0].Column != "LBSEQ" {
		t.Fatalf("sort spec: %v", next.Sort)
	}
}

func TestProjectionEventsDoNotMutatePrevious(t *testing.T) {
	s := loaded(t)
	next := Reduce(s, ColumnToggled{Column: "USUBJID"})
	if !s.Projection.IsVisible("USUBJID") || next.Projection.IsVisible("USUBJID") {
		t.Fatalf("toggle leaked into the previous state")
	}
	moved := Reduce(next, ColumnMoved{Column: "LBSEQ", To: 0})
	if next.Projection.Order()[0] != "USUBJID" || moved.Projection.Order()[0] != "LBSEQ" {
		t.Fatalf("move: %v %v", next.Projection.Order(), moved.Projection.Order())
	}
}

func TestTasks(t *testing.T) {
	doc := []byte(`{"records":3,"columns":[{"name":"USUBJID","dataType":"string"},{"name":"LBSEQ","dataType":"integer"}],` +
		`"rows":[["CDISC001",10],["CDISC002",25],["CDISC001",30]]}`)
	s := Reduce(New(0), FileSelected{File: "lb.json"})
	var events []Event
	collect := func(e Event) { events = append(events, e) }
	LoadTask{Gen: s.LoadGen, Source: ingest.NewBytesSource("lb.json", ingest.FormatJSON, doc)}.Run(context.Background(), collect)
	for _, e := range events {
		s = Reduce(s, e)
	}
	if !s.Ready() || len(s.Filtered) != 3 || s.Values == nil || s.Values.ExceedsLimit("USUBJID") {
		t.Fatalf("load task: %+v", s)
	}

	events = nil
	s = Reduce(s, FilterStarted{Query: `USUBJID = "CDISC001" and LBSEQ > 20`})
	FilterTask{Gen: s.LoadGen, FilterGen: s.FilterGen, Query: s.PendingQuery, Dataset: s.Dataset, SliceSize: 1}.Run(context.Background(), collect)
	progress := 0
	for _, e := range events {
		if _, ok := e.(FilterProgressed); ok {
			progress++
		}
		s = Reduce(s, e)
	}
	if progress != 3 {
		t.Fatalf("expected a progress event per slice, got %d", progress)
	}
	if len(s.Filtered) != 1 || s.Filtered[0][1] != int64(30) {
		t.Fatalf("filter task: %v", s.Filtered)
	}
}

func TestRunner(t *testing.T) {
	doc := []byte("{\"columns\":[{\"name\":\"A\"}]}\n[\"x\"]\n[\"y\"]\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRunner(ctx)
	defer r.Stop()

	s := Reduce(New(0), FileSelected{File: "a.ndjson"})
	r.StartLoad(LoadTask{Gen: s.LoadGen, Source: ingest.NewBytesSource("a.ndjson", ingest.FormatNDJSON, doc)})
	timeout := time.After(5 * time.Second)
	for s.Loading {
		select {
		case e := <-r.Events():
			s = Reduce(s, e)
		case <-timeout:
			t.Fatal("load did not finish")
		}
	}
	if len(s.Filtered) != 2 {
		t.Fatalf("rows %d", len(s.Filtered))
	}

	s = Reduce(s, FilterStarted{Query: `A = "y"`})
	r.StartFilter(FilterTask{Gen: s.LoadGen, FilterGen: s.FilterGen, Query: s.PendingQuery, Dataset: s.Dataset})
	for s.Filtering {
		select {
		case e := <-r.Events():
			s = Reduce(s, e)
		case <-timeout:
			t.Fatal("filter did not finish")
		}
	}
	if len(s.Filtered) != 1 || s.FilterResult.Message != "Filter applied successfully. Showing 1 of 2 rows." {
		t.Fatalf("filter: %+v", s.FilterResult)
	}
}
