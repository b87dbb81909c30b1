// Package view orders, windows and projects the filtered rows for display.
// Nothing here mutates row contents.
package view

import (
	"fmt"
	"slices"
	"strings"

	"trialscope/internal/model"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

type SortKey struct {
	Column    string    `json:"column" yaml:"column"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// SortSpec is an ordered list of keys; a column appears at most once.
type SortSpec []SortKey

func (s SortSpec) index(column string) int {
	for i, k := range s {
		if k.Column == column {
			return i
		}
	}
	return -1
}

// Direction returns the direction of column, or "" when it is not sorted.
func (s SortSpec) Direction(column string) Direction {
	if i := s.index(column); i >= 0 {
		return s[i].Direction
	}
	return ""
}

// Toggle advances column through absent -> asc -> desc -> absent. New
// columns go to the end of the spec.
func (s SortSpec) Toggle(column string) SortSpec {
	i := s.index(column)
	if i < 0 {
		return append(slices.Clone(s), SortKey{Column: column, Direction: Asc})
	}
	if s[i].Direction == Asc {
		out := slices.Clone(s)
		out[i].Direction = Desc
		return out
	}
	return s.Remove(column)
}

// SetDirection changes the direction of column, appending it when absent.
func (s SortSpec) SetDirection(column string, d Direction) SortSpec {
	out := slices.Clone(s)
	if i := s.index(column); i >= 0 {
		out[i].Direction = d
		return out
	}
	return append(out, SortKey{Column: column, Direction: d})
}

func (s SortSpec) Remove(column string) SortSpec {
	i := s.index(column)
	if i < 0 {
		return s
	}
	return slices.Delete(slices.Clone(s), i, i+1)
}

// Move puts the key for column at position to, shifting the keys between.
func (s SortSpec) Move(column string, to int) SortSpec {
	i := s.index(column)
	if i < 0 {
		return s
	}
	to = max(0, min(to, len(s)-1))
	out := slices.Clone(s)
	k := out[i]
	out = slices.Delete(out, i, i+1)
	return slices.Insert(out, to, k)
}

func (s SortSpec) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = k.Column + " " + string(k.Direction)
	}
	return strings.Join(parts, ", ")
}

// ParseSortSpec reads "COL [asc|desc], COL ..." as written by String.
// A repeated column keeps its first position and takes the last direction.
func ParseSortSpec(text string) (SortSpec, error) {
	var spec SortSpec
	for _, part := range strings.Split(text, ",") {
		f := strings.Fields(part)
		if len(f) == 0 {
			continue
		}
		if len(f) > 2 {
			return nil, fmt.Errorf("sort key %q: want COLUMN [asc|desc]", strings.TrimSpace(part))
		}
		d := Asc
		if len(f) == 2 {
			var err error
			if d, err = ParseDirection(f[1]); err != nil {
				return nil, err
			}
		}
		spec = spec.SetDirection(f[0], d)
	}
	return spec, nil
}

// Resolver maps column names to row positions. *model.Dataset implements it.
type Resolver interface {
	Index(name string) (int, bool)
}

// Sort returns rows stably ordered by spec. Values compare as strings;
// missing values compare as "". Keys on unknown columns are skipped.
func Sort(rows []model.Row, spec SortSpec, cols Resolver) []model.Row {
	var (
		pos  []int
		desc []bool
	)
	for _, k := range spec {
		if p, ok := cols.Index(k.Column); ok {
			pos = append(pos, p)
			desc = append(desc, k.Direction == Desc)
		}
	}
	if len(pos) == 0 {
		return slices.Clone(rows)
	}
	// stringify once per cell rather than once per comparison
	type keyed struct {
		row  model.Row
		keys []string
	}
	items := make([]keyed, len(rows))
	for i, r := range rows {
		ks := make([]string, len(pos))
		for j, p := range pos {
			ks[j] = model.Stringify(r.At(p))
		}
		items[i] = keyed{r, ks}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		for j := range pos {
			c := strings.Compare(a.keys[j], b.keys[j])
			if c == 0 {
				continue
			}
			if desc[j] {
				return -c
			}
			return c
		}
		return 0
	})
	out := make([]model.Row, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out
}
