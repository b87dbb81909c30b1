package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"trialscope/internal/model"
	"trialscope/internal/view"
)

const (
	minColWidth = 4
	maxColWidth = 40
)

func (m *Model) visibleColumns() []string {
	if m.st.Projection == nil {
		return nil
	}
	return m.st.Projection.Visible()
}

func (m *Model) currentColumn() string {
	vis := m.visibleColumns()
	if m.selCol < 0 || m.selCol >= len(vis) {
		return ""
	}
	return vis[m.selCol]
}

// refreshTable rebuilds the table from the current page.
func (m *Model) refreshTable() {
	// rows first: the table renders existing rows against new columns
	m.tbl.SetRows(nil)
	vis := m.visibleColumns()
	if len(vis) == 0 {
		m.tbl.SetColumns(nil)
		return
	}
	m.selCol = max(0, min(m.selCol, len(vis)-1))

	window, _ := m.st.Window()
	cells := make([][]string, len(window))
	for i, r := range window {
		vals := m.st.Projection.Cells(r)
		line := make([]string, len(vals))
		for j, v := range vals {
			line[j] = cellText(v)
		}
		cells[i] = line
	}
	titles := make([]string, len(vis))
	for j, name := range vis {
		titles[j] = m.columnTitle(name, j == m.selCol)
	}
	widths := computeWidths(titles, cells)
	m.ensureColVisible(widths)

	end := m.colOffset
	used := 0
	var cols []table.Column
	for j := m.colOffset; j < len(vis); j++ {
		w := widths[j] + 1
		if m.termWidth > 0 && j > m.colOffset && used+w > m.termWidth {
			break
		}
		used += w
		cols = append(cols, table.Column{Title: titles[j], Width: widths[j]})
		end = j + 1
	}
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c[m.colOffset:end])
	}
	m.tbl.SetColumns(cols)
	m.tbl.SetRows(rows)
	if m.tbl.Cursor() >= len(rows) {
		m.tbl.SetCursor(max(0, len(rows)-1))
	}
}

// ensureColVisible scrolls horizontally so the selected column fits.
func (m *Model) ensureColVisible(widths []int) {
	if m.selCol < m.colOffset {
		m.colOffset = m.selCol
	}
	if m.termWidth <= 0 {
		return
	}
	for m.colOffset < m.selCol {
		used := 0
		for j := m.colOffset; j <= m.selCol; j++ {
			used += widths[j] + 1
		}
		if used <= m.termWidth {
			break
		}
		m.colOffset++
	}
}

// columnTitle marks the selected column and the sort state of name.
func (m *Model) columnTitle(name string, selected bool) string {
	t := name
	if i := sortIndex(m.st.Sort, name); i >= 0 {
		arrow := "▲"
		if m.st.Sort[i].Direction == view.Desc {
			arrow = "▼"
		}
		if len(m.st.Sort) > 1 {
			t += " " + arrow + strconv.Itoa(i+1)
		} else {
			t += " " + arrow
		}
	}
	if selected {
		t = "[" + t + "]"
	}
	return t
}

func sortIndex(spec view.SortSpec, name string) int {
	for i, k := range spec {
		if k.Column == name {
			return i
		}
	}
	return -1
}

func computeWidths(titles []string, cells [][]string) []int {
	out := make([]int, len(titles))
	for j, t := range titles {
		w := runeLen(t)
		for _, line := range cells {
			if n := runeLen(line[j]); n > w {
				w = n
			}
		}
		out[j] = max(minColWidth, min(w, maxColWidth))
	}
	return out
}

func cellText(v any) string {
	s := model.Stringify(v)
	if strings.ContainsAny(s, "\n\r\t") {
		s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	}
	return s
}
