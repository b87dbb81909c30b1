package filter

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"trialscope/internal/model"
)

type limits map[string]bool

func (l limits) ExceedsLimit(c string) bool { return l[c] }

func TestRender(t *testing.T) {
	ds := lbDataset()
	tests := []struct {
		name  string
		conds []Condition
		want  string
	}{
		{
			"numeric column unquoted",
			[]Condition{{Column: "USUBJID", Operator: OpEq, Value: "CDISC001"}, {Column: "LBSEQ", Operator: OpGt, Value: "20"}},
			`USUBJID eq "CDISC001" and LBSEQ gt 20`,
		},
		{
			"empty in list dropped",
			[]Condition{{Column: "LBSEQ", Operator: OpIn, SelectedValues: []string{" ", ""}}, {Column: "USUBJID", Operator: OpNe, Value: "X"}},
			`USUBJID ne "X"`,
		},
		{
			"in list",
			[]Condition{{Column: "LBSEQ", Operator: OpIn, SelectedValues: []string{"10", " 30 "}}, {Column: "USUBJID", Operator: OpNotIn, SelectedValues: []string{"CDISC002"}}},
			`LBSEQ in (10, 30) and USUBJID not in ("CDISC002")`,
		},
		{
			"already quoted",
			[]Condition{{Column: "USUBJID", Operator: OpContains, Value: `'CDISC'`}},
			`USUBJID contains "CDISC"`,
		},
		{
			"non numeric value on numeric column",
			[]Condition{{Column: "LBSEQ", Operator: OpEq, Value: "n/a"}},
			`LBSEQ eq "n/a"`,
		},
		{
			"escapes",
			[]Condition{{Column: "USUBJID", Operator: OpEq, Value: `a"b\c`}},
			`USUBJID eq "a\"b\\c"`,
		},
		{"nothing", []Condition{{Column: "LBSEQ", Operator: OpNotIn}}, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.conds, SchemaNumeric(ds)); got != tt.want {
				t.Fatalf("got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	cols := []model.Column{{Name: "USUBJID"}, {Name: "LBSEQ", DataType: "integer"}, {Name: "LBORRES"}}
	var rows []model.Row
	for i := 0; i < 60; i++ {
		var res any = fmt.Sprintf("%d.%d", i%7, i%3)
		if i%11 == 0 {
			res = nil
		}
		rows = append(rows, model.Row{fmt.Sprintf("CDISC%03d", i%5), int64(i), res})
	}
	ds := model.NewDataset("LB", "", cols, rows, -1)
	sets := [][]Condition{
		{{Column: "USUBJID", Operator: OpEq, Value: "CDISC001"}},
		{{Column: "LBSEQ", Operator: OpGe, Value: "10"}, {Column: "LBSEQ", Operator: OpLt, Value: " 40 "}},
		{{Column: "LBSEQ", Operator: OpIn, SelectedValues: []string{"1", "2", "59"}}},
		{{Column: "LBSEQ", Operator: OpNotIn, SelectedValues: []string{}}, {Column: "USUBJID", Operator: OpContains, Value: "00"}},
		{{Column: "LBORRES", Operator: OpGt, Value: "3"}, {Column: "USUBJID", Operator: OpNe, Value: `"CDISC004"`}},
		{{Column: "LBORRES", Operator: OpEq, Value: ""}},
		{{Column: "LBSEQ", Operator: OpLe, Value: "abc"}},
		{{Column: "USUBJID", Operator: OpNotIn, SelectedValues: []string{"CDISC000", "CDISC003"}}, {Column: "LBSEQ", Operator: OpGt, Value: "-1"}},
	}
	for i, conds := range sets {
		direct, err := CompileConditions(conds, ds)
		if err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		text := Render(conds, SchemaNumeric(ds))
		viaText, err := Compile(text, ds)
		if err != nil {
			t.Fatalf("set %d: compile %q: %v", i, text, err)
		}
		a, _ := Apply(context.Background(), rows, direct, ApplyOptions{})
		b, _ := Apply(context.Background(), rows, viaText, ApplyOptions{})
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("set %d (%s): direct %d rows, text %d rows", i, text, len(a), len(b))
		}
	}
}

func TestOperatorsHideListsWhenExceeded(t *testing.T) {
	l := limits{"USUBJID": true}
	for _, o := range Operators("USUBJID", l) {
		if o.Op.IsList() {
			t.Fatalf("list operator %s offered for exceeded column", o.Op)
		}
	}
	if got := len(Operators("LBSEQ", l)); got != 9 {
		t.Fatalf("LBSEQ operators = %d", got)
	}
	if got := len(Operators("LBSEQ", nil)); got != 9 {
		t.Fatalf("nil limits operators = %d", got)
	}
}

func TestBuilderUpdateResetsValue(t *testing.T) {
	b := NewBuilder()
	c := b.Add("USUBJID")
	if c.ID == "" || c.Operator != OpEq {
		t.Fatalf("new condition %+v", c)
	}
	other := b.Add("LBSEQ")
	if other.ID == c.ID {
		t.Fatalf("ids must be unique")
	}
	v := "CDISC001"
	if _, err := b.Update(c.ID, Update{Value: &v}); err != nil {
		t.Fatal(err)
	}
	in := OpIn
	got, err := b.Update(c.ID, Update{Operator: &in})
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != "" || got.Operator != OpIn {
		t.Fatalf("operator change should reset value: %+v", got)
	}
	got, _ = b.Toggle(c.ID, "CDISC001")
	got, _ = b.Toggle(c.ID, "CDISC002")
	if got.Value != "CDISC001, CDISC002" || len(got.SelectedValues) != 2 {
		t.Fatalf("selections %+v", got)
	}
	got, _ = b.Toggle(c.ID, "CDISC001")
	if !reflect.DeepEqual(got.SelectedValues, []string{"CDISC002"}) {
		t.Fatalf("toggle off %+v", got)
	}
	col := "LBSEQ"
	got, _ = b.Update(c.ID, Update{Column: &col})
	if got.Value != "" || got.SelectedValues != nil {
		t.Fatalf("column change should reset value: %+v", got)
	}
	bad := Op("like")
	if _, err := b.Update(c.ID, Update{Operator: &bad}); err == nil {
		t.Fatalf("unknown operator accepted")
	}
	if _, err := b.Update("missing", Update{Value: &v}); err == nil {
		t.Fatalf("unknown id accepted")
	}
	if !b.Remove(other.ID) || b.Remove(other.ID) {
		t.Fatalf("remove")
	}
	if len(b.Conditions()) != 1 {
		t.Fatalf("conditions %v", b.Conditions())
	}
}

func TestBuilderSavedFilters(t *testing.T) {
	b := NewBuilder()
	if err := b.Save("empty"); err == nil {
		t.Fatalf("saving without conditions should fail")
	}
	c := b.Add("LBSEQ")
	v := "20"
	gt := OpGt
	b.Update(c.ID, Update{Operator: &gt, Value: &v})
	if err := b.Save("  "); err == nil {
		t.Fatalf("blank name accepted")
	}
	if err := b.Save("late visits"); err != nil {
		t.Fatal(err)
	}
	b.Clear()
	if len(b.Conditions()) != 0 {
		t.Fatalf("clear")
	}
	if err := b.Load("late visits"); err != nil {
		t.Fatal(err)
	}
	ds := lbDataset()
	if got := b.Render(SchemaNumeric(ds)); got != "LBSEQ gt 20" {
		t.Fatalf("render after load: %s", got)
	}
	if b.Conditions()[0].ID == c.ID {
		t.Fatalf("loaded conditions should get fresh ids")
	}
	if err := b.Load("nope"); err == nil {
		t.Fatalf("loading unknown filter should fail")
	}
	if !b.DeleteSaved("late visits") || len(b.Saved()) != 0 {
		t.Fatalf("delete saved")
	}
}
