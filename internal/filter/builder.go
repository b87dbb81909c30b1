package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type OperatorInfo struct {
	Op     Op
	Label  string
	Symbol string
}

var operators = []OperatorInfo{
	{OpEq, "equals", "="},
	{OpNe, "not equals", "!="},
	{OpGt, "greater than", ">"},
	{OpLt, "less than", "<"},
	{OpGe, "greater than or equal", ">="},
	{OpLe, "less than or equal", "<="},
	{OpContains, "contains", "contains"},
	{OpIn, "in", "in"},
	{OpNotIn, "not in", "not in"},
}

// Limits tells the builder which columns have too many distinct values to
// pick from. *freq.Index implements it.
type Limits interface {
	ExceedsLimit(column string) bool
}

// Operators lists the operators selectable for column. List operators are
// left out when the column's value table went over the cap.
func Operators(column string, limits Limits) []OperatorInfo {
	exceeded := limits != nil && limits.ExceedsLimit(column)
	out := make([]OperatorInfo, 0, len(operators))
	for _, o := range operators {
		if exceeded && o.Op.IsList() {
			continue
		}
		out = append(out, o)
	}
	return out
}

type SavedFilter struct {
	Name       string      `json:"name" yaml:"name"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// Update carries the fields to change on a condition; nil fields are kept.
type Update struct {
	Column         *string
	Operator       *Op
	Value          *string
	SelectedValues []string
}

var ErrNoCondition = errors.New("no such condition")

// Builder holds the structured conditions being edited and the filters
// saved during the session. It is not safe for concurrent use.
type Builder struct {
	conds []Condition
	saved []SavedFilter
	newID func() string
}

func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// Add appends an equality condition on column with an empty value.
func (b *Builder) Add(column string) Condition {
	c := Condition{ID: b.newID(), Column: column, Operator: OpEq}
	b.conds = append(b.conds, c)
	return c
}

func (b *Builder) find(id string) int {
	for i, c := range b.conds {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Update applies u to the condition with id. Switching column or operator
// clears the value and selections before u's own values are applied.
func (b *Builder) Update(id string, u Update) (Condition, error) {
	i := b.find(id)
	if i < 0 {
		return Condition{}, fmt.Errorf("update %s: %w", id, ErrNoCondition)
	}
	c := b.conds[i]
	if u.Column != nil && *u.Column != c.Column {
		c.Column = *u.Column
		c.Value, c.SelectedValues = "", nil
	}
	if u.Operator != nil && *u.Operator != c.Operator {
		op, ok := ParseOp(string(*u.Operator))
		if !ok {
			return Condition{}, fmt.Errorf("update %s: unknown operator %q", id, *u.Operator)
		}
		c.Operator = op
		c.Value, c.SelectedValues = "", nil
	}
	if u.Value != nil {
		c.Value = *u.Value
	}
	if u.SelectedValues != nil && c.Operator.IsList() {
		c.SelectedValues = append([]string(nil), u.SelectedValues...)
		c.Value = strings.Join(c.SelectedValues, ", ")
	}
	b.conds[i] = c
	return c, nil
}

// Toggle adds or removes v from the selections of a list condition.
func (b *Builder) Toggle(id, v string) (Condition, error) {
	i := b.find(id)
	if i < 0 {
		return Condition{}, fmt.Errorf("toggle %s: %w", id, ErrNoCondition)
	}
	sel := append([]string(nil), b.conds[i].SelectedValues...)
	found := false
	for j, s := range sel {
		if s == v {
			sel = append(sel[:j], sel[j+1:]...)
			found = true
			break
		}
	}
	if !found {
		sel = append(sel, v)
	}
	return b.Update(id, Update{SelectedValues: sel})
}

func (b *Builder) Remove(id string) bool {
	i := b.find(id)
	if i < 0 {
		return false
	}
	b.conds = append(b.conds[:i], b.conds[i+1:]...)
	return true
}

func (b *Builder) Clear() { b.conds = nil }

func (b *Builder) Conditions() []Condition {
	return append([]Condition(nil), b.conds...)
}

func (b *Builder) Render(numeric NumericFunc) string {
	return Render(b.conds, numeric)
}

// Save stores the current conditions under name, replacing an earlier
// filter with the same name.
func (b *Builder) Save(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("filter name is required")
	}
	if len(b.conds) == 0 {
		return errors.New("nothing to save: no conditions")
	}
	sf := SavedFilter{Name: name, Conditions: b.Conditions()}
	for i := range b.saved {
		if b.saved[i].Name == name {
			b.saved[i] = sf
			return nil
		}
	}
	b.saved = append(b.saved, sf)
	return nil
}

// Load replaces the current conditions with a saved filter.
func (b *Builder) Load(name string) error {
	for _, sf := range b.saved {
		if sf.Name == name {
			b.conds = make([]Condition, len(sf.Conditions))
			for i, c := range sf.Conditions {
				c.ID = b.newID()
				c.SelectedValues = append([]string(nil), c.SelectedValues...)
				b.conds[i] = c
			}
			return nil
		}
	}
	return fmt.Errorf("no saved filter named %q", name)
}

func (b *Builder) DeleteSaved(name string) bool {
	for i, sf := range b.saved {
		if sf.Name == name {
			b.saved = append(b.saved[:i], b.saved[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Builder) Saved() []SavedFilter {
	return append([]SavedFilter(nil), b.saved...)
}
