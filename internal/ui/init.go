package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"trialscope/internal/ai"
	"trialscope/internal/catalog"
	"trialscope/internal/config"
	"trialscope/internal/filter"
	"trialscope/internal/session"
	"trialscope/internal/util/logx"
)

func initialModel(ctx context.Context, cfg *config.Config) *Model {
	m := &Model{
		ctx:     ctx,
		cfg:     cfg,
		runner:  session.NewRunner(ctx),
		st:      session.New(cfg.PageSize),
		pane:    paneFiles,
		styles:  NewStyles(cfg.Theme == config.ThemeDark),
		keymap:  DefaultKeyMap(),
		builder: filter.NewBuilder(),
		input:   textinput.New(),
		spin:    spinner.New(),
		prog:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	m.spin.Spinner = spinner.Dot
	m.input.CharLimit = 1024
	m.modalVP = viewport.New(80, 20)

	m.tbl = table.New(table.WithFocused(true), table.WithHeight(20))
	ts := table.DefaultStyles()
	ts.Header = m.styles.TableStyles.Header
	ts.Cell = m.styles.TableStyles.Cell
	ts.Selected = m.styles.TableStyles.Selected
	m.tbl.SetStyles(ts)

	if cfg.AIEnabled() {
		m.assistant = ai.NewOpenAIClient(cfg.OpenAIKey(), cfg.OpenAIBase, cfg.OpenAIModel, cfg.OpenAITimeout()).WithCache(ai.DefaultCacheDir())
	}
	cat, err := catalog.Discover(cfg.Dir, cfg.CatalogOptions())
	if err != nil {
		logx.Warnf("ui: discover %s: %v", cfg.Dir, err)
		m.lastMsg = err.Error()
		cat = &catalog.Catalog{Root: cfg.Dir}
	}
	m.cat = cat
	m.helpItems = m.buildHelpItems()
	return m
}

// Run opens the browser. initial, when set, names a dataset to load right
// away: a file path or a name inside cfg.Dir.
func Run(ctx context.Context, cfg *config.Config, initial string) error {
	m := initialModel(ctx, cfg)
	defer m.runner.Stop()
	if initial != "" {
		if err := m.selectInitial(initial); err != nil {
			return err
		}
	}
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), m.spin.Tick)
}

func (m *Model) resizeTable() {
	// title, status, inline line and the table header
	h := m.termHeight - 5
	if h < 3 {
		h = 3
	}
	m.tbl.SetHeight(h)
	m.tbl.SetWidth(m.termWidth)
	m.prog.Width = min(60, max(10, m.termWidth-30))
	m.input.Width = max(10, m.termWidth-20)
}
