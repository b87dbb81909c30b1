package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"
)

type column struct {
	ItemOID     string `json:"itemOID"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	DataType    string `json:"dataType"`
	Length      int    `json:"length,omitempty"`
	KeySequence int    `json:"keySequence,omitempty"`
}

// domain describes one synthetic dataset: its columns and a row maker.
type domain struct {
	name    string
	label   string
	columns []column
	row     func(g *generator, i int) []any
}

var domains = map[string]domain{
	"lb": {
		name:  "LB",
		label: "Laboratory Test Results",
		columns: []column{
			{Name: "STUDYID", Label: "Study Identifier", DataType: "string", Length: 12, KeySequence: 1},
			{Name: "DOMAIN", Label: "Domain Abbreviation", DataType: "string", Length: 2},
			{Name: "USUBJID", Label: "Unique Subject Identifier", DataType: "string", Length: 20, KeySequence: 2},
			{Name: "LBSEQ", Label: "Sequence Number", DataType: "integer", KeySequence: 3},
			{Name: "LBTESTCD", Label: "Lab Test or Examination Short Name", DataType: "string", Length: 8},
			{Name: "LBTEST", Label: "Lab Test or Examination Name", DataType: "string", Length: 40},
			{Name: "LBORRES", Label: "Result or Finding in Original Units", DataType: "string", Length: 20},
			{Name: "LBORRESU", Label: "Original Units", DataType: "string", Length: 10},
			{Name: "LBSTRESN", Label: "Numeric Result/Finding in Standard Units", DataType: "float"},
			{Name: "LBDTC", Label: "Date/Time of Specimen Collection", DataType: "datetime", Length: 19},
		},
		row: func(g *generator, i int) []any {
			t := labTests[g.rng.Intn(len(labTests))]
			v := t.low + g.rng.Float64()*(t.high-t.low)*1.4
			return []any{
				g.study, "LB", g.subject(i), i + 1, t.code, t.name,
				fmt.Sprintf("%.1f", v), t.unit, roundTo(v, 2), g.date(i),
			}
		},
	},
	"dm": {
		name:  "DM",
		label: "Demographics",
		columns: []column{
			{Name: "STUDYID", Label: "Study Identifier", DataType: "string", Length: 12, KeySequence: 1},
			{Name: "DOMAIN", Label: "Domain Abbreviation", DataType: "string", Length: 2},
			{Name: "USUBJID", Label: "Unique Subject Identifier", DataType: "string", Length: 20, KeySequence: 2},
			{Name: "AGE", Label: "Age", DataType: "integer"},
			{Name: "SEX", Label: "Sex", DataType: "string", Length: 1},
			{Name: "RACE", Label: "Race", DataType: "string", Length: 40},
			{Name: "ARM", Label: "Description of Planned Arm", DataType: "string", Length: 40},
			{Name: "COUNTRY", Label: "Country", DataType: "string", Length: 3},
			{Name: "RFSTDTC", Label: "Subject Reference Start Date/Time", DataType: "date", Length: 10},
		},
		row: func(g *generator, i int) []any {
			return []any{
				g.study, "DM", fmt.Sprintf("%s-%05d", g.study, i+1), 18 + g.rng.Intn(68),
				pick(g.rng, "F", "M"), pick(g.rng, races...), pick(g.rng, arms...),
				pick(g.rng, "USA", "CAN", "DEU", "FRA", "JPN", "BRA"), g.date(i)[:10],
			}
		},
	},
	"ae": {
		name:  "AE",
		label: "Adverse Events",
		columns: []column{
			{Name: "STUDYID", Label: "Study Identifier", DataType: "string", Length: 12, KeySequence: 1},
			{Name: "DOMAIN", Label: "Domain Abbreviation", DataType: "string", Length: 2},
			{Name: "USUBJID", Label: "Unique Subject Identifier", DataType: "string", Length: 20, KeySequence: 2},
			{Name: "AESEQ", Label: "Sequence Number", DataType: "integer", KeySequence: 3},
			{Name: "AETERM", Label: "Reported Term for the Adverse Event", DataType: "string", Length: 60},
			{Name: "AESEV", Label: "Severity/Intensity", DataType: "string", Length: 8},
			{Name: "AESER", Label: "Serious Event", DataType: "string", Length: 1},
			{Name: "AESTDTC", Label: "Start Date/Time of Adverse Event", DataType: "date", Length: 10},
		},
		row: func(g *generator, i int) []any {
			var ser any = pick(g.rng, "N", "N", "N", "Y")
			if g.rng.Intn(20) == 0 {
				ser = nil
			}
			return []any{
				g.study, "AE", g.subject(i), i + 1, pick(g.rng, aeTerms...),
				pick(g.rng, "MILD", "MILD", "MODERATE", "SEVERE"), ser, g.date(i)[:10],
			}
		},
	},
}

func domainNames() []string {
	out := make([]string, 0, len(domains))
	for k := range domains {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type labTest struct {
	code, name, unit string
	low, high        float64
}

var (
	labTests = []labTest{
		{"ALT", "Alanine Aminotransferase", "U/L", 7, 56},
		{"AST", "Aspartate Aminotransferase", "U/L", 10, 40},
		{"ALB", "Albumin", "g/L", 35, 50},
		{"GLUC", "Glucose", "mmol/L", 3.9, 5.6},
		{"HGB", "Hemoglobin", "g/dL", 12, 17.5},
		{"CREAT", "Creatinine", "umol/L", 60, 110},
		{"K", "Potassium", "mmol/L", 3.5, 5.1},
	}
	races   = []string{"WHITE", "BLACK OR AFRICAN AMERICAN", "ASIAN", "AMERICAN INDIAN OR ALASKA NATIVE", "MULTIPLE"}
	arms    = []string{"Placebo", "Drug A 10 mg", "Drug A 20 mg"}
	aeTerms = []string{"HEADACHE", "NAUSEA", "FATIGUE", "DIZZINESS", "RASH", "INSOMNIA", "ARTHRALGIA", "COUGH"}
)

type generator struct {
	d        domain
	rng      *rand.Rand
	study    string
	subjects int
	start    time.Time
}

func newGenerator(d domain, seed int64) *generator {
	rng := rand.New(rand.NewSource(seed))
	return &generator{
		d:        d,
		rng:      rng,
		study:    fmt.Sprintf("STUDY%03d", rng.Intn(1000)),
		subjects: 50 + rng.Intn(450),
		start:    time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (g *generator) subject(int) string {
	return fmt.Sprintf("%s-%05d", g.study, g.rng.Intn(g.subjects)+1)
}

func (g *generator) date(i int) string {
	return g.start.Add(time.Duration(i)*17*time.Minute + time.Duration(g.rng.Intn(3600))*time.Second).Format("2006-01-02T15:04:05")
}

func pick(rng *rand.Rand, vals ...string) string { return vals[rng.Intn(len(vals))] }

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

type metadata struct {
	DatasetJSONVersion string   `json:"datasetJSONVersion"`
	Name               string   `json:"name"`
	Label              string   `json:"label"`
	Records            int      `json:"records"`
	Columns            []column `json:"columns"`
}

func (g *generator) metadata(rows int) metadata {
	cols := make([]column, len(g.d.columns))
	for i, c := range g.d.columns {
		c.ItemOID = "IT." + g.d.name + "." + c.Name
		cols[i] = c
	}
	return metadata{DatasetJSONVersion: "1.1", Name: g.d.name, Label: g.d.label, Records: rows, Columns: cols}
}

// write streams a dataset of n rows. When stop reports true the output is
// cut short and left incomplete.
func (g *generator) write(w io.Writer, format string, n int, stop func() bool) error {
	meta, err := json.Marshal(g.metadata(n))
	if err != nil {
		return err
	}
	if format == "ndjson" {
		if _, err := fmt.Fprintf(w, "%s\n", meta); err != nil {
			return err
		}
	} else {
		// reopen the metadata object to append the rows array
		if _, err := fmt.Fprintf(w, "%s,\"rows\":[\n", meta[:len(meta)-1]); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		if i%1000 == 0 && stop != nil && stop() {
			return nil
		}
		b, err := json.Marshal(g.d.row(g, i))
		if err != nil {
			return err
		}
		sep := "\n"
		if format != "ndjson" && i < n-1 {
			sep = ",\n"
		}
		if _, err := fmt.Fprintf(w, "%s%s", b, sep); err != nil {
			return err
		}
	}
	if format != "ndjson" {
		_, err := io.WriteString(w, "]}\n")
		return err
	}
	return nil
}
