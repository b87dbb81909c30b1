package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"trialscope/internal/filter"
	"trialscope/internal/freq"
	"trialscope/internal/model"
)

func (m *Model) View() string {
	v := m.renderMain()
	if m.modalActive {
		dimmed := lipgloss.NewStyle().Faint(true).Render(v)
		v = overlay(dimmed, m.renderModal())
	}
	return v
}

func (m *Model) renderMain() string {
	var body string
	switch {
	case m.st.Loading:
		body = m.renderLoading()
	case m.pane == paneFiles:
		body = m.renderFiles()
	case m.st.Err != "":
		body = m.styles.Error.Render("Error: " + m.st.Err)
	default:
		body = m.tbl.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTitle(), body, m.renderInline(), m.renderStatus())
}

func (m *Model) renderTitle() string {
	t := "trialscope"
	if m.st.File != "" {
		t += " · " + m.st.File
	}
	if ds := m.st.Dataset; ds != nil && ds.Label != "" {
		t += " · " + ds.Label
	}
	return m.styles.Title.Render(t)
}

func (m *Model) renderLoading() string {
	p := m.st.Progress
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		fmt.Sprintf("%s %s", m.spin.View(), p.Message),
		m.prog.ViewAs(float64(p.Current)/100),
		m.styles.Help.Render(string(p.Phase)),
	)
}

func (m *Model) renderFiles() string {
	if len(m.cat.Entries) == 0 {
		return m.styles.Help.Render(fmt.Sprintf("No datasets matching %s under %s", m.cfg.Pattern, m.cat.Root))
	}
	// one line per folder header and per entry; sel is the selected line
	var lines []string
	sel, i := 0, 0
	for _, f := range m.cat.Folders() {
		lines = append(lines, m.styles.FileFolder.Render(f+"/"))
		for _, e := range m.cat.InFolder(f) {
			line := fmt.Sprintf("  %-40s %8s  %s", e.Name(), humanSize(e.Size), e.Format)
			if i == m.fileSel {
				line = m.styles.FileActive.Render(line)
				sel = len(lines)
			}
			lines = append(lines, line)
			i++
		}
	}
	h := max(1, m.termHeight-4)
	start := 0
	if sel >= h {
		start = sel - h + 1
	}
	end := min(len(lines), start+h)
	return strings.Join(lines[start:end], "\n")
}

func (m *Model) renderInline() string {
	switch m.inlineMode {
	case inlineFilter, inlineAsk, inlineExport, inlineSave:
		return m.input.View() + m.styles.Help.Render("    [enter]=apply [esc]=cancel")
	}
	if m.st.Filter != "" {
		return m.styles.Help.Render("filter: "+m.st.Filter) + m.styles.Help.Render("    [f]=edit [F]=clear")
	}
	return ""
}

func (m *Model) renderStatus() string {
	parts := []string{}
	if m.st.Dataset != nil {
		_, info := m.st.Window()
		parts = append(parts, fmt.Sprintf("%s | page %d/%d", info.Showing(), info.CurrentPage, max(1, info.TotalPages)))
		if len(m.st.Sort) > 0 {
			parts = append(parts, "sort: "+m.st.Sort.String())
		}
	}
	if m.st.Busy() {
		what := "loading"
		if m.st.Filtering {
			what = "filtering"
		}
		parts = append(parts, m.spin.View()+" "+what)
	}
	if m.asking {
		parts = append(parts, m.spin.View()+" asking")
	}
	parts = append(parts, "[?]=help")
	status := m.styles.Status.Render(strings.Join(parts, " | "))
	if m.st.Notice != "" {
		status += " " + m.styles.Notice.Render(m.st.Notice)
	}
	if m.lastMsg != "" {
		status += " " + m.styles.Status.Render(m.lastMsg)
	}
	return status
}

func (m *Model) openModal(kind modalKind, title, body string) {
	m.modalActive = true
	m.modalKind = kind
	m.modalTitle = title
	m.modalBody = body
	m.resizeModal()
}

func (m *Model) closeModal() {
	m.modalActive = false
	m.modalKind = modalNone
	m.valueItems = nil
	m.valuePicked = nil
	m.valueOps = nil
}

func (m *Model) resizeModal() {
	w := m.termWidth - 6
	h := m.termHeight - 6
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	m.modalVP = viewport.New(w-4, h-4)
	switch m.modalKind {
	case modalHelp:
		m.modalBody = m.renderHelp()
		m.modalVP.SetContent(m.modalBody)
	case modalValues:
		m.renderValuesBody()
	case modalSaved:
		m.renderSavedBody()
	default:
		m.modalVP.SetContent(m.modalBody)
	}
}

func (m *Model) renderModal() string {
	var content string
	switch m.modalKind {
	case modalValues:
		content = m.modalVP.View() + "\n[esc]=close  [enter]=filter  [space]=pick several  [o]=operator  [↑/↓]=navigate"
	case modalSaved:
		content = m.modalVP.View() + "\n[esc]=close  [enter]=apply  [d]=delete  [↑/↓]=navigate"
	case modalRow:
		content = m.modalVP.View() + "\n[esc/enter]=close  [c]=copy"
	default:
		content = m.modalVP.View() + "\n[esc/enter]=close"
	}
	boxW := m.termWidth - 6
	if boxW < 20 {
		boxW = 20
	}
	title := m.styles.PopupTitle.Render(m.modalTitle)
	body := m.styles.PopupBox.Width(boxW).Render(title + "\n" + content)
	return lipgloss.Place(m.termWidth, m.termHeight, lipgloss.Center, lipgloss.Center, body)
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	group := ""
	for _, it := range m.helpItems {
		if it.group != group {
			if group != "" {
				b.WriteByte('\n')
			}
			group = it.group
			b.WriteString(m.styles.PopupTitle.Render(group) + "\n")
		}
		b.WriteString(fmt.Sprintf("  %-10s %s\n", keyLabel(it.key), it.text))
	}
	return b.String()
}

// renderRow lists every column of r, hidden ones included.
func (m *Model) renderRow(r model.Row) string {
	ds := m.st.Dataset
	var b strings.Builder
	if keys := ds.KeyColumns(); len(keys) > 0 {
		vals := make([]string, len(keys))
		for i, k := range keys {
			pos, _ := ds.Index(k.Name)
			vals[i] = k.Name + "=" + model.Stringify(r.At(pos))
		}
		b.WriteString(m.styles.Help.Render("key: "+strings.Join(vals, ", ")) + "\n\n")
	}
	for _, name := range m.st.Projection.Order() {
		pos, _ := ds.Index(name)
		c := ds.Columns[pos]
		b.WriteString(m.styles.PopupTitle.Render(c.Name))
		if c.Label != "" {
			b.WriteString(" " + m.styles.Help.Render(c.Label))
		}
		b.WriteString("\n  " + model.Stringify(r.At(pos)) + "\n")
	}
	return b.String()
}

func (m *Model) openValuesModal(column string) {
	idx := m.st.Values
	m.valueColumn = column
	m.valueSel = 0
	m.valuePicked = map[string]bool{}
	m.valueItems = nil
	m.valueOp = 0
	title := "Values of " + column
	switch {
	case idx == nil:
		m.openModal(modalRow, title, "Values are not indexed yet.")
		return
	case idx.ExceedsLimit(column):
		ops := filter.Operators(column, idx)
		syms := make([]string, len(ops))
		for i, o := range ops {
			syms[i] = o.Symbol
		}
		m.openModal(modalRow, title, fmt.Sprintf("%s has more than %d distinct values.\nType a filter with one of: %s", column, idx.Cap(), strings.Join(syms, " ")))
		return
	}
	m.valueOps = filter.Operators(column, idx)
	for _, e := range idx.Values(column) {
		m.valueItems = append(m.valueItems, freq.ValueShare{
			Value:     e.Value,
			Label:     freq.Label(e.Value),
			Frequency: e.Frequency,
			Percent:   freq.Percent(e.Frequency, idx.Total()),
		})
	}
	kind := "text"
	if idx.IsNumeric(column) {
		kind = "numeric"
	}
	m.valueTitle = fmt.Sprintf("%s (%s, %d distinct)", title, kind, len(m.valueItems))
	m.openModal(modalValues, m.valuesModalTitle(), "")
}

func (m *Model) valueOperator() filter.Op {
	if m.valueOp < len(m.valueOps) {
		return m.valueOps[m.valueOp].Op
	}
	return filter.OpEq
}

func (m *Model) valuesModalTitle() string {
	if m.valueOp < len(m.valueOps) {
		o := m.valueOps[m.valueOp]
		return fmt.Sprintf("%s  op: %s (%s)", m.valueTitle, o.Symbol, o.Label)
	}
	return m.valueTitle
}

func (m *Model) openSavedModal() {
	m.savedSel = 0
	m.openModal(modalSaved, "Saved filters", "")
}

func (m *Model) renderSavedBody() {
	saved := m.builder.Saved()
	if len(saved) == 0 {
		m.modalBody = m.styles.Help.Render("No saved filters. Pick values with v, then save them with w.")
		m.modalVP.SetContent(m.modalBody)
		return
	}
	// without a dataset every value renders quoted
	numeric := func(string) bool { return false }
	if m.st.Dataset != nil {
		numeric = filter.SchemaNumeric(m.st.Dataset)
	}
	var b strings.Builder
	for i, sf := range saved {
		line := fmt.Sprintf("%-24s %s", sf.Name, filter.Render(sf.Conditions, numeric))
		if i == m.savedSel {
			line = m.styles.FileActive.Render(line)
		}
		b.WriteString(line + "\n")
	}
	m.modalBody = b.String()
	m.modalVP.SetContent(m.modalBody)
}

func (m *Model) pickedValues() []string {
	var out []string
	for _, it := range m.valueItems {
		if m.valuePicked[it.Value] {
			out = append(out, it.Value)
		}
	}
	return out
}

func (m *Model) renderValuesBody() {
	m.modalBody = renderValuesList(m.valueItems, m.valuePicked, m.modalVP.Width, m.valueSel)
	m.modalVP.SetContent(m.modalBody)
	// keep the selection on screen
	if m.valueSel < m.modalVP.YOffset {
		m.modalVP.SetYOffset(m.valueSel)
	} else if m.valueSel >= m.modalVP.YOffset+m.modalVP.Height {
		m.modalVP.SetYOffset(m.valueSel - m.modalVP.Height + 1)
	}
}
