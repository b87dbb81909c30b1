package freq

import "math"

// EmptyLabel is how blank values are shown in the overview.
const EmptyLabel = "(empty)"

type ValueShare struct {
	Value     string  `json:"value" yaml:"value"`
	Label     string  `json:"label" yaml:"label"`
	Frequency int     `json:"frequency" yaml:"frequency"`
	Percent   float64 `json:"percent" yaml:"percent"`
}

type ColumnSummary struct {
	Name          string       `json:"name" yaml:"name"`
	Numeric       bool         `json:"numeric" yaml:"numeric"`
	ExceedsLimit  bool         `json:"exceedsLimit" yaml:"exceedsLimit"`
	DistinctCount int          `json:"distinctCount,omitempty" yaml:"distinctCount,omitempty"`
	Values        []ValueShare `json:"values,omitempty" yaml:"values,omitempty"`
}

type Summary struct {
	Rows    int             `json:"rows" yaml:"rows"`
	Cap     int             `json:"cap" yaml:"cap"`
	Columns []ColumnSummary `json:"columns" yaml:"columns"`
}

// Summary is the frequency overview for every column in load order.
// Percentages are of the total row count, rounded to one decimal.
func (x *Index) Summary() Summary {
	out := Summary{Rows: x.total, Cap: x.cap, Columns: make([]ColumnSummary, 0, len(x.names))}
	for i, name := range x.names {
		cs := ColumnSummary{Name: name, Numeric: x.numeric[i]}
		switch c := x.cols[i].(type) {
		case Exceeded:
			cs.ExceedsLimit = true
		case Complete:
			cs.DistinctCount = len(c.Entries)
			cs.Values = make([]ValueShare, len(c.Entries))
			for j, e := range c.Entries {
				cs.Values[j] = ValueShare{
					Value:     e.Value,
					Label:     Label(e.Value),
					Frequency: e.Frequency,
					Percent:   Percent(e.Frequency, x.total),
				}
			}
		}
		out.Columns = append(out.Columns, cs)
	}
	return out
}

func Label(v string) string {
	if v == "" {
		return EmptyLabel
	}
	return v
}

func Percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}
