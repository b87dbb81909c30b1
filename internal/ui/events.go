package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"trialscope/internal/ai"
	"trialscope/internal/catalog"
	"trialscope/internal/export"
	"trialscope/internal/filter"
	"trialscope/internal/ingest"
	"trialscope/internal/session"
	"trialscope/internal/util/logx"
)

type eventMsg struct{ e session.Event }

type askMsg struct {
	sug ai.Suggestion
	err error
}

type exportMsg struct {
	path string
	rows int
	err  error
}

// waitEvent delivers the next task event to Update. It is re-armed after
// every delivery.
func (m *Model) waitEvent() tea.Cmd {
	ch := m.runner.Events()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case e := <-ch:
			return eventMsg{e}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) applyEvent(e session.Event) {
	prev := m.st
	m.st = session.Reduce(m.st, e)
	switch e.(type) {
	case session.LoadFinished:
		if prev.Loading && !m.st.Loading {
			if m.st.Dataset != nil {
				m.pane = paneTable
				logx.Infof("ui: loaded %s (%d rows)", m.st.File, len(m.st.Dataset.Rows))
			}
			m.refreshTable()
		}
	case session.FilterFinished:
		if prev.Filtering && !m.st.Filtering {
			if r := m.st.FilterResult; r != nil {
				m.lastMsg = r.Message
			}
			m.refreshTable()
		}
	}
}

// startLoad begins a new load generation for src.
func (m *Model) startLoad(src ingest.Source, label string) {
	m.st = session.Reduce(m.st, session.FileSelected{File: label})
	m.runner.StartLoad(session.LoadTask{
		Gen:      m.st.LoadGen,
		Source:   src,
		Options:  m.cfg.IngestOptions(),
		ValueCap: m.cfg.ValueCap,
	})
	m.selCol, m.colOffset = 0, 0
	m.lastMsg = ""
	// saved filters outlive the file, the conditions in use do not
	m.builder.Clear()
	m.baseFilter = ""
	m.refreshTable()
}

func (m *Model) loadEntry(e catalog.Entry) {
	src, err := e.Source()
	if err != nil {
		m.lastMsg = err.Error()
		return
	}
	m.startLoad(src, e.Rel)
}

// selectInitial loads name, a file path or a dataset in the catalog.
func (m *Model) selectInitial(name string) error {
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		f, err := ingest.NewFile(name, m.cfg.SourceFormat())
		if err != nil {
			return err
		}
		m.startLoad(f, filepath.Base(name))
		return nil
	}
	e, err := m.cat.Find(name)
	if err != nil {
		return err
	}
	for i, c := range m.cat.Entries {
		if c.Path == e.Path {
			m.fileSel = i
		}
	}
	m.loadEntry(e)
	return nil
}

func (m *Model) startFilter(q string) {
	if !m.st.Ready() {
		m.lastMsg = "No dataset loaded"
		return
	}
	m.st = session.Reduce(m.st, session.FilterStarted{Query: q})
	m.runner.StartFilter(session.FilterTask{
		Gen:       m.st.LoadGen,
		FilterGen: m.st.FilterGen,
		Query:     q,
		Dataset:   m.st.Dataset,
		SliceSize: m.cfg.FilterSlice,
	})
}

// applyTyped replaces the whole filter with query text. Builder
// conditions are dropped; the text already carries them.
func (m *Model) applyTyped(q string) {
	m.baseFilter = q
	m.builder.Clear()
	m.startFilter(q)
}

// query joins the typed filter with the rendered builder conditions.
func (m *Model) query() string {
	var parts []string
	if b := strings.TrimSpace(m.baseFilter); b != "" {
		parts = append(parts, b)
	}
	if m.st.Dataset != nil {
		if c := m.builder.Render(filter.SchemaNumeric(m.st.Dataset)); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " and ")
}

// filterForValues adds a builder condition on column with op over values
// and reapplies the filter. Several values under = or != become an in or
// not in list; the ordered operators and contains take exactly one value.
func (m *Model) filterForValues(column string, op filter.Op, values []string) {
	if len(values) == 0 {
		return
	}
	if len(values) > 1 {
		switch op {
		case filter.OpEq:
			op = filter.OpIn
		case filter.OpNe:
			op = filter.OpNotIn
		case filter.OpIn, filter.OpNotIn:
		default:
			m.lastMsg = fmt.Sprintf("%s takes a single value", op)
			return
		}
	}
	u := filter.Update{Operator: &op, Value: &values[0]}
	if op.IsList() {
		u = filter.Update{Operator: &op, SelectedValues: values}
	}
	c := m.builder.Add(column)
	if _, err := m.builder.Update(c.ID, u); err != nil {
		m.builder.Remove(c.ID)
		m.lastMsg = err.Error()
		return
	}
	m.startFilter(m.query())
}

func (m *Model) saveFilter(name string) {
	if err := m.builder.Save(name); err != nil {
		m.lastMsg = "Save filter: " + err.Error()
		return
	}
	m.lastMsg = "Saved filter " + strings.TrimSpace(name)
	if m.baseFilter != "" {
		m.lastMsg += " (typed text is not part of it)"
	}
}

// loadSaved swaps the builder conditions for a saved filter and applies it
// on its own.
func (m *Model) loadSaved(name string) {
	if !m.st.Ready() {
		m.lastMsg = "No dataset loaded"
		return
	}
	if err := m.builder.Load(name); err != nil {
		m.lastMsg = err.Error()
		return
	}
	m.baseFilter = ""
	m.startFilter(m.query())
}

func (m *Model) askCmd(question string) tea.Cmd {
	client, ctx, ds, idx := m.assistant, m.ctx, m.st.Dataset, m.st.Values
	return func() tea.Msg {
		sug, err := client.SuggestFilter(ctx, question, ds, idx)
		return askMsg{sug: sug, err: err}
	}
}

// exportCmd writes the current view; the table is captured before the
// command runs so later state changes do not leak into the file.
func (m *Model) exportCmd(path string) tea.Cmd {
	if !m.st.Ready() {
		m.lastMsg = "No dataset loaded"
		return nil
	}
	t, err := export.NewTable(m.st.Dataset, m.st.Sorted, m.st.Projection.Visible())
	if err != nil {
		m.lastMsg = err.Error()
		return nil
	}
	return func() tea.Msg {
		err := export.ToFile(path, "", t)
		return exportMsg{path: path, rows: len(t.Rows), err: err}
	}
}
