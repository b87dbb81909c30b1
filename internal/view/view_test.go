package view

import (
	"reflect"
	"testing"

	"trialscope/internal/model"
)

func dataset(rows ...model.Row) *model.Dataset {
	cols := []model.Column{{Name: "K"}, {Name: "I", DataType: "integer"}, {Name: "V"}}
	return model.NewDataset("T", "", cols, rows, -1)
}

func column(rows []model.Row, pos int) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.At(pos)
	}
	return out
}

func TestSortIsStable(t *testing.T) {
	ds := dataset(
		model.Row{"x", int64(1)},
		model.Row{"x", int64(2)},
		model.Row{"a", int64(3)},
		model.Row{"x", int64(4)},
	)
	got := Sort(ds.Rows, SortSpec{{Column: "K", Direction: Asc}}, ds)
	if want := []any{int64(3), int64(1), int64(2), int64(4)}; !reflect.DeepEqual(column(got, 1), want) {
		t.Fatalf("asc: %v", column(got, 1))
	}
	got = Sort(ds.Rows, SortSpec{{Column: "K", Direction: Desc}}, ds)
	if want := []any{int64(1), int64(2), int64(4), int64(3)}; !reflect.DeepEqual(column(got, 1), want) {
		t.Fatalf("desc: %v", column(got, 1))
	}
	if ds.Rows[2][0] != "a" {
		t.Fatalf("input rows were reordered")
	}
}

func TestSortMultiKeyLexical(t *testing.T) {
	ds := dataset(
		model.Row{"b", int64(10), "p"},
		model.Row{"a", int64(9), "q"},
		model.Row{"b", int64(2), nil},
		model.Row{"a"},
	)
	spec := SortSpec{{Column: "K", Direction: Asc}, {Column: "I", Direction: Asc}, {Column: "GONE", Direction: Desc}}
	got := Sort(ds.Rows, spec, ds)
	// "" < "9" and "10" < "2" as strings
	want := []any{nil, int64(9), int64(10), int64(2)}
	if !reflect.DeepEqual(column(got, 1), want) {
		t.Fatalf("got %v want %v", column(got, 1), want)
	}
	got = Sort(ds.Rows, SortSpec{{Column: "V", Direction: Desc}}, ds)
	if want := []any{"q", "p", nil, nil}; !reflect.DeepEqual(column(got, 2), want) {
		t.Fatalf("desc with missing: %v", column(got, 2))
	}
}

func TestToggleCycle(t *testing.T) {
	var s SortSpec
	s = s.Toggle("C")
	if !reflect.DeepEqual(s, SortSpec{{"C", Asc}}) {
		t.Fatalf("first: %v", s)
	}
	s = s.Toggle("C")
	if !reflect.DeepEqual(s, SortSpec{{"C", Desc}}) {
		t.Fatalf("second: %v", s)
	}
	s = s.Toggle("C")
	if len(s) != 0 {
		t.Fatalf("third: %v", s)
	}
}

func TestToggleAppendsAndKeepsOthers(t *testing.T) {
	s := SortSpec{}.Toggle("A").Toggle("B").Toggle("A")
	want := SortSpec{{"A", Desc}, {"B", Asc}}
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("got %v", s)
	}
	orig := SortSpec{{"A", Asc}}
	_ = orig.Toggle("A")
	if orig[0].Direction != Asc {
		t.Fatalf("Toggle mutated its receiver")
	}
}

func TestSpecEditing(t *testing.T) {
	s := SortSpec{{"A", Asc}, {"B", Asc}, {"C", Asc}}
	if got := s.Move("C", 0); got.String() != "C asc, A asc, B asc" {
		t.Fatalf("move: %s", got)
	}
	if got := s.Move("A", 99); got.String() != "B asc, C asc, A asc" {
		t.Fatalf("move past end: %s", got)
	}
	if got := s.Remove("B"); got.String() != "A asc, C asc" {
		t.Fatalf("remove: %s", got)
	}
	if got := s.SetDirection("B", Desc); got.Direction("B") != Desc || len(got) != 3 {
		t.Fatalf("set direction: %s", got)
	}
	if got := s.SetDirection("D", Desc); got.String() != "A asc, B asc, C asc, D desc" {
		t.Fatalf("set direction appends: %s", got)
	}
	if s.String() != "A asc, B asc, C asc" {
		t.Fatalf("receiver mutated: %s", s)
	}
}

func TestParseSortSpec(t *testing.T) {
	s, err := ParseSortSpec("USUBJID, LBSEQ desc,USUBJID DESC")
	if err != nil {
		t.Fatal(err)
	}
	if s.String() != "USUBJID desc, LBSEQ desc" {
		t.Fatalf("got %s", s)
	}
	for _, bad := range []string{"A up", "A asc extra"} {
		if _, err := ParseSortSpec(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]model.Row, 65)
	for i := range rows {
		rows[i] = model.Row{int64(i)}
	}
	tests := []struct {
		page  int
		want  PageInfo
		first any
	}{
		{1, PageInfo{1, 3, 0, 30, 65}, int64(0)},
		{3, PageInfo{3, 3, 60, 65, 65}, int64(60)},
		{0, PageInfo{1, 3, 0, 30, 65}, int64(0)},
		{9, PageInfo{3, 3, 60, 65, 65}, int64(60)},
	}
	for _, tt := range tests {
		got, info := Paginate(rows, tt.page, DefaultPageSize)
		if info != tt.want {
			t.Errorf("page %d: %+v want %+v", tt.page, info, tt.want)
		}
		if len(got) != info.EndIndex-info.StartIndex || got[0][0] != tt.first {
			t.Errorf("page %d: window %d rows starting %v", tt.page, len(got), got[0][0])
		}
	}
	_, info := Paginate(rows, 3, 0)
	if info.Showing() != "Showing 61-65 of 65 rows" || info.HasNext() || !info.HasPrev() {
		t.Fatalf("showing: %s", info.Showing())
	}
}

func TestPaginateEmpty(t *testing.T) {
	got, info := Paginate(nil, 4, DefaultPageSize)
	if len(got) != 0 || info != (PageInfo{CurrentPage: 1}) {
		t.Fatalf("empty: %v %+v", got, info)
	}
	if info.Showing() != "Showing 0 of 0 rows" {
		t.Fatalf("showing: %s", info.Showing())
	}
}

func TestProjection(t *testing.T) {
	ds := dataset(model.Row{"k", int64(1), "v"})
	p := NewProjection(ds)
	if !reflect.DeepEqual(p.Visible(), []string{"K", "I", "V"}) {
		t.Fatalf("initial %v", p.Visible())
	}
	p.Move("V", 0)
	p.Toggle("I")
	if !reflect.DeepEqual(p.Cells(ds.Rows[0]), []any{"v", "k"}) {
		t.Fatalf("cells %v", p.Cells(ds.Rows[0]))
	}
	if !reflect.DeepEqual(ds.Rows[0], model.Row{"k", int64(1), "v"}) {
		t.Fatalf("row mutated")
	}
	p.SetVisible([]string{"K"})
	if p.Toggle("K") {
		t.Fatalf("hid the last visible column")
	}
	p.ShowAll()
	if !reflect.DeepEqual(p.Visible(), []string{"V", "K", "I"}) {
		t.Fatalf("show all %v", p.Visible())
	}
	if p.Toggle("NOPE") || p.Move("NOPE", 1) {
		t.Fatalf("unknown column accepted")
	}
}
