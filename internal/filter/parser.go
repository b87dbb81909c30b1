package filter

import (
	"fmt"
	"strings"
)

type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpLt       Op = "lt"
	OpGe       Op = "ge"
	OpLe       Op = "le"
	OpContains Op = "contains"
	OpIn       Op = "in"
	OpNotIn    Op = "not in"
)

var symbolOps = map[string]Op{
	"=":  OpEq,
	"!=": OpNe,
	">":  OpGt,
	"<":  OpLt,
	">=": OpGe,
	"<=": OpLe,
}

var keywordOps = map[string]Op{
	"eq":       OpEq,
	"ne":       OpNe,
	"gt":       OpGt,
	"lt":       OpLt,
	"ge":       OpGe,
	"le":       OpLe,
	"contains": OpContains,
	"in":       OpIn,
}

// IsList reports operators taking a parenthesised value list.
func (o Op) IsList() bool { return o == OpIn || o == OpNotIn }

func ParseOp(s string) (Op, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if op, ok := symbolOps[s]; ok {
		return op, true
	}
	if op, ok := keywordOps[s]; ok {
		return op, true
	}
	if s == string(OpNotIn) {
		return OpNotIn, true
	}
	return "", false
}

type Connective int

const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// Literal is a comparison operand as typed. Quoted literals are always
// strings; unquoted ones may become numbers depending on the column.
type Literal struct {
	Text   string
	Quoted bool
}

type Comparison struct {
	Column string
	Op     Op
	Args   []Literal // one for scalar operators, zero or more for in/not in
}

// Expr is a flat chain of comparisons evaluated left to right:
// Terms[0] Joins[0] Terms[1] Joins[1] ... There is no grouping.
type Expr struct {
	Terms []Comparison
	Joins []Connective
}

func (e *Expr) Empty() bool { return e == nil || len(e.Terms) == 0 }

// String renders the chain back into query text.
func (e *Expr) String() string {
	if e.Empty() {
		return ""
	}
	var b strings.Builder
	for i, t := range e.Terms {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(e.Joins[i-1].String())
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

func (c Comparison) String() string {
	if c.Op.IsList() {
		parts := make([]string, len(c.Args))
		for i, a := range c.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s %s (%s)", c.Column, c.Op, strings.Join(parts, ", "))
	}
	var arg Literal
	if len(c.Args) > 0 {
		arg = c.Args[0]
	}
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, arg)
}

func (l Literal) String() string {
	if l.Quoted || l.Text == "" {
		return quote(l.Text)
	}
	return l.Text
}

type parser struct {
	toks []token
	i    int
}

// Parse reads query text into a flat comparison chain. A blank query
// yields an empty chain.
func Parse(query string) (*Expr, error) {
	if strings.TrimSpace(query) == "" {
		return &Expr{}, nil
	}
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e := &Expr{}
	for {
		c, err := p.comparison()
		if err != nil {
			return nil, err
		}
		e.Terms = append(e.Terms, c)
		t := p.next()
		if t.kind == tokEOF {
			return e, nil
		}
		if t.kind != tokWord {
			return nil, p.errorf(t, "expected and/or, got %s", t)
		}
		switch strings.ToLower(t.text) {
		case "and":
			e.Joins = append(e.Joins, And)
		case "or":
			e.Joins = append(e.Joins, Or)
		default:
			return nil, p.errorf(t, "expected and/or, got %s", t)
		}
	}
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) errorf(t token, format string, args ...any) error {
	return &CompileError{Pos: t.pos, Token: t.text, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) comparison() (Comparison, error) {
	col := p.next()
	if col.kind != tokWord {
		return Comparison{}, p.errorf(col, "expected column name, got %s", col)
	}
	c := Comparison{Column: col.text}
	opTok := p.next()
	switch opTok.kind {
	case tokOp:
		c.Op = symbolOps[opTok.text]
	case tokWord:
		kw := strings.ToLower(opTok.text)
		if kw == "not" {
			in := p.next()
			if in.kind != tokWord || !strings.EqualFold(in.text, "in") {
				return Comparison{}, p.errorf(in, `expected "in" after "not", got %s`, in)
			}
			c.Op = OpNotIn
		} else if op, ok := keywordOps[kw]; ok {
			c.Op = op
		}
	}
	if c.Op == "" {
		return Comparison{}, p.errorf(opTok, "expected operator after %q, got %s", col.text, opTok)
	}
	if c.Op.IsList() {
		args, err := p.list()
		if err != nil {
			return Comparison{}, err
		}
		c.Args = args
		return c, nil
	}
	v := p.next()
	switch v.kind {
	case tokWord:
		c.Args = []Literal{{Text: v.text}}
	case tokString:
		c.Args = []Literal{{Text: v.text, Quoted: true}}
	default:
		return Comparison{}, p.errorf(v, "expected value after %s %s, got %s", col.text, c.Op, v)
	}
	return c, nil
}

// list reads "(v, v, ...)". Blank entries are dropped, so "()" and "( , )"
// are both the empty list.
func (p *parser) list() ([]Literal, error) {
	open := p.next()
	if open.kind != tokLParen {
		return nil, p.errorf(open, `expected "(", got %s`, open)
	}
	var out []Literal
	for {
		t := p.next()
		switch t.kind {
		case tokRParen:
			return out, nil
		case tokComma:
			continue
		case tokWord:
			out = append(out, Literal{Text: t.text})
		case tokString:
			if s := strings.TrimSpace(t.text); s != "" {
				out = append(out, Literal{Text: s, Quoted: true})
			}
		default:
			return nil, p.errorf(t, `expected value or ")", got %s`, t)
		}
		if n := p.peek(); n.kind != tokComma && n.kind != tokRParen {
			return nil, p.errorf(n, `expected "," or ")", got %s`, n)
		}
	}
}
