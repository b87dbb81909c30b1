package model

import "testing"

func intp(i int) *int { return &i }

func TestDatasetIndexAndNumeric(t *testing.T) {
	cols := []Column{{Name: "USUBJID", DataType: "string"}, {Name: "LBSEQ", DataType: "integer"}, {Name: "LBORRES", DataType: "string"}}
	rows := []Row{
		{"CDISC001", int64(10), "5.1"},
		{"CDISC002", int64(25), ""},
		{"CDISC001", nil, "NEG"},
	}
	ds := NewDataset("LB", "Laboratory", cols, rows, 3)
	if i, ok := ds.Index("LBSEQ"); !ok || i != 1 {
		t.Fatalf("index LBSEQ = %d,%v", i, ok)
	}
	if _, ok := ds.Index("NOPE"); ok {
		t.Fatalf("unexpected column")
	}
	if ds.IsNumeric(0) {
		t.Fatalf("USUBJID should not be numeric")
	}
	if !ds.IsNumeric(1) {
		t.Fatalf("LBSEQ should be numeric (null ignored)")
	}
	if ds.IsNumeric(2) {
		t.Fatalf("LBORRES has NEG, must not be numeric")
	}
}

func TestDatasetNumericFallsBackToDataType(t *testing.T) {
	ds := NewDataset("", "", []Column{{Name: "A", DataType: "float"}, {Name: "B", DataType: "string"}}, nil, 0)
	if !ds.IsNumeric(0) || ds.IsNumeric(1) {
		t.Fatalf("numeric flags from dataType: %v %v", ds.IsNumeric(0), ds.IsNumeric(1))
	}
}

func TestKeyColumns(t *testing.T) {
	ds := NewDataset("", "", []Column{
		{Name: "LBSEQ", KeySequence: intp(3)},
		{Name: "STUDYID", KeySequence: intp(1)},
		{Name: "LBORRES"},
		{Name: "USUBJID", KeySequence: intp(2)},
	}, nil, 0)
	keys := ds.KeyColumns()
	if len(keys) != 3 || keys[0].Name != "STUDYID" || keys[2].Name != "LBSEQ" {
		t.Fatalf("keys: %+v", keys)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{" 3.5 ", 3.5, true},
		{"-2e3", -2000, true},
		{"0x1A", 26, true},
		{"0b101", 5, true},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"+Inf", 0, false},
		{"infinity", 0, false},
		{"-0x1A", 0, false},
		{"0x1p-2", 0, false},
		{"", 0, false},
		{true, 0, false},
		{int64(7), 7, true},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%#v) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNonFiniteSpellingsAreText(t *testing.T) {
	cols := []Column{{Name: "USUBJID"}, {Name: "RES", DataType: "float"}}
	ds := NewDataset("LB", "", cols, []Row{{"CDISC001", "NaN"}, {"CDISC002", "1"}, {"CDISC001", "inf"}}, 3)
	if ds.IsNumeric(1) {
		t.Fatal("RES holds NaN/inf spellings and must be text")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(30), "30"},
		{float64(25), "25"},
		{2.5, "2.5"},
		{true, "true"},
		{[]any{int64(1), "a"}, `[1,"a"]`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRowAtOutOfRange(t *testing.T) {
	var r Row
	if r.At(3) != nil {
		t.Fatalf("empty row must yield nil")
	}
}
