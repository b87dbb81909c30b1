package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"trialscope/internal/model"
)

// Schema resolves column names for the compiler. *model.Dataset implements it.
type Schema interface {
	Index(name string) (int, bool)
	IsNumeric(pos int) bool
}

type Predicate func(model.Row) bool

// All matches every row.
func All(model.Row) bool { return true }

// CompileError reports an unknown column or a syntax error. Column is set
// for unknown columns, Token for syntax errors.
type CompileError struct {
	Column string
	Token  string
	Pos    int
	Msg    string
}

func (e *CompileError) Error() string {
	if e.Column != "" && e.Msg == "" {
		return "unknown column: " + e.Column
	}
	return e.Msg
}

// expressions are compiled once per operator; operands arrive as parameters
// so literal text is never reinterpreted by the expression parser
var expressions = map[Op]string{
	OpEq:       "v == lit",
	OpNe:       "v != lit",
	OpGt:       "v > lit",
	OpLt:       "v < lit",
	OpGe:       "v >= lit",
	OpLe:       "v <= lit",
	OpContains: "contains(v, lit)",
	OpIn:       "v IN lits",
	OpNotIn:    "!(v IN lits)",
}

var functions = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.New("contains: want 2 arguments")
		}
		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, errors.New("contains: string arguments required")
		}
		return strings.Contains(s, sub), nil
	},
}

var compiled = func() map[Op]*govaluate.EvaluableExpression {
	out := make(map[Op]*govaluate.EvaluableExpression, len(expressions))
	for op, src := range expressions {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions)
		if err != nil {
			panic(fmt.Sprintf("filter: %s: %v", src, err))
		}
		out[op] = e
	}
	return out
}()

// params is the per-row parameter set handed to govaluate.
type params struct {
	v    any
	lit  any
	lits []any
}

func (p params) Get(name string) (any, error) {
	switch name {
	case "v":
		return p.v, nil
	case "lit":
		return p.lit, nil
	case "lits":
		return p.lits, nil
	}
	return nil, fmt.Errorf("unknown parameter %q", name)
}

type comparison struct {
	pos     int
	numeric bool // cell is read as a number, literal is a float64
	expr    *govaluate.EvaluableExpression
	lit     any
	lits    []any
}

func (c *comparison) match(r model.Row) bool {
	p := params{lit: c.lit, lits: c.lits}
	cell := r.At(c.pos)
	if c.numeric {
		if f, ok := model.ParseNumber(cell); ok {
			p.v = f
		}
	} else {
		p.v = model.Stringify(cell)
	}
	out, err := c.expr.Eval(p)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func bindComparison(t Comparison, schema Schema) (*comparison, error) {
	pos, ok := schema.Index(t.Column)
	if !ok {
		return nil, &CompileError{Column: t.Column}
	}
	c := &comparison{pos: pos, expr: compiled[t.Op]}
	if c.expr == nil {
		return nil, &CompileError{Token: string(t.Op), Msg: fmt.Sprintf("unsupported operator %q", t.Op)}
	}
	switch t.Op {
	case OpIn, OpNotIn:
		c.lits = make([]any, 0, len(t.Args))
		for _, a := range t.Args {
			if s := strings.TrimSpace(a.Text); s != "" {
				c.lits = append(c.lits, s)
			}
		}
		return c, nil
	}
	if len(t.Args) != 1 {
		return nil, &CompileError{Token: t.Column, Msg: fmt.Sprintf("%s %s expects one value", t.Column, t.Op)}
	}
	lit := t.Args[0]
	if t.Op != OpContains && !lit.Quoted && schema.IsNumeric(pos) {
		if f, ok := model.ParseNumber(lit.Text); ok {
			c.numeric = true
			c.lit = f
			return c, nil
		}
	}
	c.lit = lit.Text
	return c, nil
}

// Bind resolves the chain against schema. Unknown columns fail the whole
// compile.
func (e *Expr) Bind(schema Schema) (Predicate, error) {
	if e.Empty() {
		return All, nil
	}
	terms := make([]*comparison, len(e.Terms))
	for i, t := range e.Terms {
		c, err := bindComparison(t, schema)
		if err != nil {
			return nil, err
		}
		terms[i] = c
	}
	joins := append([]Connective(nil), e.Joins...)
	return func(r model.Row) bool {
		ok := terms[0].match(r)
		for i, j := range joins {
			if (j == And && !ok) || (j == Or && ok) {
				continue
			}
			ok = terms[i+1].match(r)
		}
		return ok
	}, nil
}

// Compile turns query text into a row predicate. A blank query matches
// every row.
func Compile(query string, schema Schema) (Predicate, error) {
	e, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return e.Bind(schema)
}
