package ui

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"trialscope/internal/model"
	"trialscope/internal/session"
	"trialscope/internal/util/logx"
)

func (m *Model) buildHelpItems() []helpItem {
	km := m.keymap
	return []helpItem{
		{group: "Navigation", text: "Previous row", key: tea.Key{Type: tea.KeyUp}},
		{group: "Navigation", text: "Next row", key: tea.Key{Type: tea.KeyDown}},
		{group: "Navigation", text: "Previous column", key: tea.Key{Type: tea.KeyLeft}},
		{group: "Navigation", text: "Next column", key: tea.Key{Type: tea.KeyRight}},
		{group: "Navigation", text: "Next page", key: km.NextPage},
		{group: "Navigation", text: "Previous page", key: km.PrevPage},
		{group: "Navigation", text: "First page", key: km.FirstPage},
		{group: "Navigation", text: "Last page", key: km.LastPage},
		{group: "Navigation", text: "Files / table", key: km.Files},

		{group: "Filter", text: "Edit filter", key: km.Filter},
		{group: "Filter", text: "Clear filter", key: km.ClearFilter},
		{group: "Filter", text: "Ask the assistant (OpenAI)", key: km.Ask},
		{group: "Filter", text: "Values of column (o cycles the operator)", key: km.Values},
		{group: "Filter", text: "Save picked conditions", key: km.SaveFilter},
		{group: "Filter", text: "Saved filters", key: km.SavedList},

		{group: "Columns", text: "Sort column (asc, desc, off)", key: km.Sort},
		{group: "Columns", text: "Clear sort", key: km.ClearSort},
		{group: "Columns", text: "Hide column", key: km.HideColumn},
		{group: "Columns", text: "Move column left", key: km.MoveLeft},
		{group: "Columns", text: "Move column right", key: km.MoveRight},

		{group: "Views", text: "Inspect row", key: km.Inspect},
		{group: "Views", text: "Application logs", key: km.AppLogs},
		{group: "Views", text: "Help", key: km.Help},

		{group: "Control", text: "Copy row", key: km.CopyRow},
		{group: "Control", text: "Export view", key: km.Export},
		{group: "Control", text: "Quit", key: km.Quit},
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth, m.termHeight = msg.Width, msg.Height
		m.resizeTable()
		m.refreshTable()
		if m.modalActive {
			m.resizeModal()
		}
		return m, nil
	case eventMsg:
		m.applyEvent(msg.e)
		return m, m.waitEvent()
	case askMsg:
		m.asking = false
		if msg.err != nil {
			logx.Warnf("ui: assistant: %v", msg.err)
			m.lastMsg = "Assistant: " + msg.err.Error()
			return m, nil
		}
		// the suggestion is only proposed; enter applies it
		m.lastMsg = msg.sug.Explanation
		return m, m.openInline(inlineFilter, msg.sug.Filter)
	case exportMsg:
		if msg.err != nil {
			m.lastMsg = "Export failed: " + msg.err.Error()
		} else {
			m.lastMsg = "Exported " + itoa(msg.rows) + " rows to " + msg.path
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.modalActive {
		return m.handleModalKey(msg)
	}
	if m.inlineMode != inlineNone {
		return m.handleInlineKey(msg)
	}
	km := m.keymap
	switch {
	case keyMatches(msg, km.Quit):
		return m, tea.Quit
	case keyMatches(msg, km.Help):
		m.openModal(modalHelp, "Help", "")
		return m, nil
	case keyMatches(msg, km.AppLogs):
		m.openModal(modalLogs, "Application logs", logx.Dump())
		m.modalVP.GotoBottom()
		return m, nil
	case keyMatches(msg, km.Files):
		if m.pane == paneFiles && m.st.Dataset != nil {
			m.pane = paneTable
		} else {
			m.pane = paneFiles
		}
		return m, nil
	}
	if m.pane == paneFiles {
		return m.handleFilesKey(msg)
	}
	return m.handleTableKey(msg)
}

func (m *Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.cat.Entries)
	switch msg.String() {
	case "up", "k":
		if m.fileSel > 0 {
			m.fileSel--
		}
	case "down", "j":
		if m.fileSel < n-1 {
			m.fileSel++
		}
	case "home":
		m.fileSel = 0
	case "end":
		m.fileSel = max(0, n-1)
	case "enter":
		if m.fileSel < n {
			m.loadEntry(m.cat.Entries[m.fileSel])
		}
	}
	return m, nil
}

func (m *Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := m.keymap
	col := m.currentColumn()
	switch {
	case msg.Type == tea.KeyLeft:
		if m.selCol > 0 {
			m.selCol--
			m.refreshTable()
		}
		return m, nil
	case msg.Type == tea.KeyRight:
		if m.selCol < len(m.visibleColumns())-1 {
			m.selCol++
			m.refreshTable()
		}
		return m, nil
	case keyMatches(msg, km.NextPage):
		return m, m.reduce(session.PageRequested{Page: m.st.Page + 1})
	case keyMatches(msg, km.PrevPage):
		return m, m.reduce(session.PageRequested{Page: m.st.Page - 1})
	case keyMatches(msg, km.FirstPage):
		return m, m.reduce(session.PageRequested{Page: 1})
	case keyMatches(msg, km.LastPage):
		_, info := m.st.Window()
		return m, m.reduce(session.PageRequested{Page: info.TotalPages})
	case keyMatches(msg, km.Filter):
		q := m.st.Filter
		if m.st.Filtering {
			q = m.st.PendingQuery
		}
		return m, m.openInline(inlineFilter, q)
	case keyMatches(msg, km.ClearFilter):
		m.applyTyped("")
		return m, nil
	case keyMatches(msg, km.SaveFilter):
		if len(m.builder.Conditions()) == 0 {
			m.lastMsg = "Nothing to save: pick values with " + keyLabel(km.Values) + " first"
			return m, nil
		}
		return m, m.openInline(inlineSave, "")
	case keyMatches(msg, km.SavedList):
		m.openSavedModal()
		return m, nil
	case keyMatches(msg, km.Ask):
		if m.assistant == nil {
			m.lastMsg = "Assistant disabled: set OPENAI_API_KEY and do not run offline"
			return m, nil
		}
		return m, m.openInline(inlineAsk, "")
	case keyMatches(msg, km.Export):
		name := strings.TrimSuffix(filepath.Base(m.st.File), filepath.Ext(m.st.File))
		return m, m.openInline(inlineExport, name+"-view.csv")
	case col == "":
		// everything below needs a column
	case keyMatches(msg, km.Sort):
		return m, m.reduce(session.SortRequested{Column: col})
	case keyMatches(msg, km.ClearSort):
		return m, m.reduce(session.SortChanged{Spec: nil})
	case keyMatches(msg, km.HideColumn):
		if len(m.visibleColumns()) == 1 {
			m.lastMsg = "The last visible column cannot be hidden"
			return m, nil
		}
		return m, m.reduce(session.ColumnToggled{Column: col})
	case keyMatches(msg, km.MoveLeft), keyMatches(msg, km.MoveRight):
		order := m.st.Projection.Order()
		i := slices.Index(order, col)
		if keyMatches(msg, km.MoveLeft) {
			i--
		} else {
			i++
		}
		m.st = session.Reduce(m.st, session.ColumnMoved{Column: col, To: i})
		m.selCol = max(0, slices.Index(m.visibleColumns(), col))
		m.refreshTable()
		return m, nil
	case keyMatches(msg, km.Values):
		m.openValuesModal(col)
		return m, nil
	case keyMatches(msg, km.Inspect):
		if r, ok := m.selectedRow(); ok {
			m.openModal(modalRow, "Row", m.renderRow(r))
		}
		return m, nil
	case keyMatches(msg, km.CopyRow):
		if r, ok := m.selectedRow(); ok {
			cells := m.st.Projection.Cells(r)
			parts := make([]string, len(cells))
			for i, c := range cells {
				parts[i] = cellText(c)
			}
			copyToClipboard(strings.Join(parts, "\t"))
			m.lastMsg = "Row copied"
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// reduce applies a user event and redraws.
func (m *Model) reduce(e session.Event) tea.Cmd {
	m.st = session.Reduce(m.st, e)
	m.refreshTable()
	return nil
}

func (m *Model) selectedRow() (model.Row, bool) {
	window, _ := m.st.Window()
	i := m.tbl.Cursor()
	if i < 0 || i >= len(window) {
		return nil, false
	}
	return window[i], true
}

func (m *Model) openInline(mode inlineMode, value string) tea.Cmd {
	m.inlineMode = mode
	switch mode {
	case inlineFilter:
		m.input.Prompt = "filter> "
		m.input.Placeholder = `LBTESTCD = "ALT" and LBSEQ > 2`
	case inlineAsk:
		m.input.Prompt = "ask> "
		m.input.Placeholder = "which subjects had an ALT test?"
	case inlineExport:
		m.input.Prompt = "export to> "
		m.input.Placeholder = "view.csv | view.xlsx | view.ndjson | view.json"
	case inlineSave:
		m.input.Prompt = "save filter as> "
		m.input.Placeholder = "albumin checks"
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInline() {
	m.inlineMode = inlineNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) handleInlineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInline()
		return m, nil
	case tea.KeyEnter:
		mode, v := m.inlineMode, strings.TrimSpace(m.input.Value())
		m.closeInline()
		switch mode {
		case inlineFilter:
			m.applyTyped(v)
		case inlineSave:
			m.saveFilter(v)
		case inlineAsk:
			if v == "" || m.asking {
				return m, nil
			}
			m.asking = true
			m.lastMsg = "Asking the assistant..."
			return m, m.askCmd(v)
		case inlineExport:
			if v == "" {
				return m, nil
			}
			return m, m.exportCmd(v)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.closeModal()
		return m, nil
	}
	switch m.modalKind {
	case modalValues:
		switch msg.String() {
		case "up", "k":
			if m.valueSel > 0 {
				m.valueSel--
			}
			m.renderValuesBody()
			return m, nil
		case "down", "j":
			if m.valueSel < len(m.valueItems)-1 {
				m.valueSel++
			}
			m.renderValuesBody()
			return m, nil
		case " ":
			if m.valueSel < len(m.valueItems) {
				v := m.valueItems[m.valueSel].Value
				m.valuePicked[v] = !m.valuePicked[v]
			}
			m.renderValuesBody()
			return m, nil
		case "o":
			if len(m.valueOps) > 0 {
				m.valueOp = (m.valueOp + 1) % len(m.valueOps)
				m.modalTitle = m.valuesModalTitle()
			}
			return m, nil
		case "enter":
			picked := m.pickedValues()
			if len(picked) == 0 && m.valueSel < len(m.valueItems) {
				picked = []string{m.valueItems[m.valueSel].Value}
			}
			col, op := m.valueColumn, m.valueOperator()
			m.closeModal()
			m.filterForValues(col, op, picked)
			return m, nil
		}
	case modalSaved:
		saved := m.builder.Saved()
		switch msg.String() {
		case "up", "k":
			if m.savedSel > 0 {
				m.savedSel--
			}
			m.renderSavedBody()
			return m, nil
		case "down", "j":
			if m.savedSel < len(saved)-1 {
				m.savedSel++
			}
			m.renderSavedBody()
			return m, nil
		case "d":
			if m.savedSel < len(saved) {
				m.builder.DeleteSaved(saved[m.savedSel].Name)
				m.lastMsg = "Deleted filter " + saved[m.savedSel].Name
				m.savedSel = max(0, min(m.savedSel, len(saved)-2))
			}
			m.renderSavedBody()
			return m, nil
		case "enter":
			m.closeModal()
			if m.savedSel < len(saved) {
				m.loadSaved(saved[m.savedSel].Name)
			}
			return m, nil
		}
	case modalRow:
		if keyMatches(msg, m.keymap.CopyRow) {
			copyToClipboard(m.modalBody)
			m.lastMsg = "Row copied"
			return m, nil
		}
	}
	if msg.Type == tea.KeyEnter {
		m.closeModal()
		return m, nil
	}
	var cmd tea.Cmd
	m.modalVP, cmd = m.modalVP.Update(msg)
	return m, cmd
}
