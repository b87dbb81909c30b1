package view

import (
	"slices"

	"trialscope/internal/model"
)

// Projection is the display order and visibility of columns. Rows keep
// their load-time positions; only the projection changes.
type Projection struct {
	order   []string
	hidden  map[string]bool
	columns map[string]int
}

// NewProjection shows every column of ds in load order.
func NewProjection(ds *model.Dataset) *Projection {
	p := &Projection{hidden: map[string]bool{}, columns: map[string]int{}}
	if ds == nil {
		return p
	}
	for i, c := range ds.Columns {
		if _, dup := p.columns[c.Name]; dup {
			continue
		}
		p.columns[c.Name] = i
		p.order = append(p.order, c.Name)
	}
	return p
}

// Order is every column name in display order, hidden ones included.
func (p *Projection) Order() []string { return slices.Clone(p.order) }

// Visible is the displayed column names in order.
func (p *Projection) Visible() []string {
	out := make([]string, 0, len(p.order))
	for _, n := range p.order {
		if !p.hidden[n] {
			out = append(out, n)
		}
	}
	return out
}

func (p *Projection) IsVisible(name string) bool {
	_, ok := p.columns[name]
	return ok && !p.hidden[name]
}

// Toggle flips the visibility of name. The last visible column cannot be
// hidden.
func (p *Projection) Toggle(name string) bool {
	if _, ok := p.columns[name]; !ok {
		return false
	}
	if !p.hidden[name] && len(p.Visible()) == 1 {
		return false
	}
	p.hidden[name] = !p.hidden[name]
	return true
}

// SetVisible shows exactly names (unknown names ignored), keeping the order.
func (p *Projection) SetVisible(names []string) {
	keep := map[string]bool{}
	for _, n := range names {
		if _, ok := p.columns[n]; ok {
			keep[n] = true
		}
	}
	if len(keep) == 0 {
		return
	}
	for _, n := range p.order {
		p.hidden[n] = !keep[n]
	}
}

func (p *Projection) ShowAll() { clear(p.hidden) }

// Move places name at display position to.
func (p *Projection) Move(name string, to int) bool {
	i := slices.Index(p.order, name)
	if i < 0 {
		return false
	}
	to = max(0, min(to, len(p.order)-1))
	p.order = slices.Insert(slices.Delete(p.order, i, i+1), to, name)
	return true
}

// Positions maps the visible columns to row positions.
func (p *Projection) Positions() []int {
	vis := p.Visible()
	out := make([]int, len(vis))
	for i, n := range vis {
		out[i] = p.columns[n]
	}
	return out
}

// Cells returns the visible cells of r in display order.
func (p *Projection) Cells(r model.Row) []any {
	pos := p.Positions()
	out := make([]any, len(pos))
	for i, at := range pos {
		out[i] = r.At(at)
	}
	return out
}

// Clone returns an independent copy.
func (p *Projection) Clone() *Projection {
	if p == nil {
		return nil
	}
	c := &Projection{
		order:   slices.Clone(p.order),
		hidden:  make(map[string]bool, len(p.hidden)),
		columns: make(map[string]int, len(p.columns)),
	}
	for k, v := range p.hidden {
		c.hidden[k] = v
	}
	for k, v := range p.columns {
		c.columns[k] = v
	}
	return c
}
