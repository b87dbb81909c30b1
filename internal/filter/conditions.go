package filter

import (
	"strings"

	"trialscope/internal/model"
)

// Condition is one row of the structured filter builder. Conditions combine
// with and only; or is reachable through query text alone.
type Condition struct {
	ID             string   `json:"id" yaml:"id"`
	Column         string   `json:"column" yaml:"column"`
	Operator       Op       `json:"operator" yaml:"operator"`
	Value          string   `json:"value" yaml:"value"`
	SelectedValues []string `json:"selectedValues,omitempty" yaml:"selectedValues,omitempty"`
}

// NumericFunc reports whether a column should take unquoted numeric values.
type NumericFunc func(column string) bool

// SchemaNumeric adapts a Schema for Render.
func SchemaNumeric(s Schema) NumericFunc {
	return func(column string) bool {
		pos, ok := s.Index(column)
		return ok && s.IsNumeric(pos)
	}
}

// Conditions converts conditions to the comparison chain their rendered text
// parses to. In and not in conditions without values are dropped.
func Conditions(conds []Condition, numeric NumericFunc) *Expr {
	e := &Expr{}
	for _, c := range conds {
		t, ok := conditionComparison(c, numeric)
		if !ok {
			continue
		}
		if len(e.Terms) > 0 {
			e.Joins = append(e.Joins, And)
		}
		e.Terms = append(e.Terms, t)
	}
	return e
}

func conditionComparison(c Condition, numeric NumericFunc) (Comparison, bool) {
	if c.Column == "" {
		return Comparison{}, false
	}
	op := c.Operator
	if op == "" {
		op = OpEq
	}
	isNum := numeric != nil && numeric(c.Column)
	t := Comparison{Column: c.Column, Op: op}
	if op.IsList() {
		for _, v := range c.SelectedValues {
			if v = strings.TrimSpace(v); v != "" {
				t.Args = append(t.Args, literalFor(v, isNum))
			}
		}
		return t, len(t.Args) > 0
	}
	t.Args = []Literal{literalFor(c.Value, isNum)}
	return t, true
}

// literalFor quotes v unless the column is numeric and v is a number, or v
// already carries matching quotes.
func literalFor(v string, numeric bool) Literal {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		if text, n, err := lexQuoted(v); err == nil && n == len(v) {
			return Literal{Text: text, Quoted: true}
		}
	}
	if numeric {
		if s := strings.TrimSpace(v); s != "" {
			if _, ok := model.ParseNumber(s); ok {
				return Literal{Text: s}
			}
		}
	}
	return Literal{Text: v, Quoted: true}
}

// Render serialises builder conditions to query text, joined with "and".
func Render(conds []Condition, numeric NumericFunc) string {
	return Conditions(conds, numeric).String()
}

// CompileConditions evaluates builder conditions without going through
// text. It matches exactly what Compile(Render(conds)) matches.
func CompileConditions(conds []Condition, schema Schema) (Predicate, error) {
	return Conditions(conds, SchemaNumeric(schema)).Bind(schema)
}
