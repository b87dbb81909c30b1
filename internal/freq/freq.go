// Package freq builds the per-column unique-value frequency index used by the
// filter builder's suggestions and the dataset overview.
package freq

import (
	"context"
	"sort"

	"trialscope/internal/model"
)

const DefaultCap = 100

// scan granularity between context checks
const sliceSize = 5000

type Entry struct {
	Value     string `json:"value" yaml:"value"`
	Frequency int    `json:"frequency" yaml:"frequency"`
}

// Column is the indexed state of one column: Complete or Exceeded, never a
// truncated mix of both.
type Column interface {
	isColumn()
}

// Complete holds every distinct value, most frequent first.
type Complete struct {
	Entries []Entry
}

// Exceeded marks a column whose distinct count went over the cap.
type Exceeded struct{}

func (Complete) isColumn() {}
func (Exceeded) isColumn() {}

type Index struct {
	cap     int
	total   int
	names   []string
	byName  map[string]int
	cols    []Column
	numeric []bool
}

type counter struct {
	pos   map[string]int
	order []Entry
}

// Build scans every column once. A column whose distinct count passes cap
// drops its table and stops counting, but numeric detection keeps going.
func Build(ctx context.Context, cols []model.Column, rows []model.Row, cap int) (*Index, error) {
	if cap <= 0 {
		cap = DefaultCap
	}
	idx := &Index{
		cap:     cap,
		total:   len(rows),
		names:   make([]string, len(cols)),
		byName:  make(map[string]int, len(cols)),
		cols:    make([]Column, len(cols)),
		numeric: make([]bool, len(cols)),
	}
	for i, c := range cols {
		idx.names[i] = c.Name
		if _, dup := idx.byName[c.Name]; !dup {
			idx.byName[c.Name] = i
		}
	}
	for i, c := range cols {
		col, numeric, err := scan(ctx, rows, i, cap)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			numeric = model.NumericDataType(c.DataType)
		}
		idx.cols[i] = col
		idx.numeric[i] = numeric
	}
	return idx, nil
}

func scan(ctx context.Context, rows []model.Row, pos, cap int) (Column, bool, error) {
	cnt := &counter{pos: make(map[string]int)}
	exceeded := false
	numeric := true
	for start := 0; start < len(rows); start += sliceSize {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		end := min(start+sliceSize, len(rows))
		for _, r := range rows[start:end] {
			v := r.At(pos)
			if numeric && !model.IsNumericValue(v) {
				numeric = false
			}
			if exceeded {
				if !numeric {
					break
				}
				continue
			}
			s := model.Stringify(v)
			if i, ok := cnt.pos[s]; ok {
				cnt.order[i].Frequency++
				continue
			}
			if len(cnt.order) == cap {
				exceeded = true
				cnt = nil
				continue
			}
			cnt.pos[s] = len(cnt.order)
			cnt.order = append(cnt.order, Entry{Value: s, Frequency: 1})
		}
		if exceeded && !numeric {
			break
		}
	}
	if exceeded {
		return Exceeded{}, numeric, nil
	}
	entries := cnt.order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Frequency > entries[j].Frequency
	})
	return Complete{Entries: entries}, numeric, nil
}

func (x *Index) column(name string) (Column, int, bool) {
	if x == nil {
		return nil, -1, false
	}
	i, ok := x.byName[name]
	if !ok {
		return nil, -1, false
	}
	return x.cols[i], i, true
}

// Values returns the entries of a column, or nil when it exceeded the cap
// or is unknown. The slice is shared; callers must not modify it.
func (x *Index) Values(name string) []Entry {
	c, _, ok := x.column(name)
	if !ok {
		return nil
	}
	if cc, ok := c.(Complete); ok {
		return cc.Entries
	}
	return nil
}

func (x *Index) ExceedsLimit(name string) bool {
	c, _, ok := x.column(name)
	if !ok {
		return false
	}
	_, ex := c.(Exceeded)
	return ex
}

// HasValues is true for a column with a complete, non-empty table.
func (x *Index) HasValues(name string) bool {
	return len(x.Values(name)) > 0
}

func (x *Index) IsNumeric(name string) bool {
	_, i, ok := x.column(name)
	return ok && x.numeric[i]
}

// Column returns the tagged state of a column.
func (x *Index) Column(name string) (Column, bool) {
	c, _, ok := x.column(name)
	return c, ok
}

func (x *Index) Cap() int   { return x.cap }
func (x *Index) Total() int { return x.total }
