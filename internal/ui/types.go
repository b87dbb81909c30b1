package ui

import (
	"context"
	"strings"

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
	"trialscope/internal/freq"
	"trialscope/internal/session"
)

type pane int

const (
	paneFiles pane = iota
	paneTable
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalValues
	modalRow
	modalLogs
	modalSaved
)

type inlineMode int

const (
	inlineNone inlineMode = iota
	inlineFilter
	inlineAsk
	inlineExport
	inlineSave
)

type Model struct {
	ctx    context.Context
	cfg    *config.Config
	runner *session.Runner
	st     session.State

	// Files
	cat     *catalog.Catalog
	fileSel int

	assistant *ai.OpenAIClient
	asking    bool

	// Filter composition: typed text and'ed with builder conditions
	builder    *filter.Builder
	baseFilter string

	// UI
	pane       pane
	tbl        table.Model
	styles     Styles
	input      textinput.Model
	prog       progress.Model
	spin       spinner.Model
	keymap     KeyMap
	selCol     int // index into the visible columns
	colOffset  int
	termWidth  int
	termHeight int
	lastMsg    string

	inlineMode inlineMode

	// Modal popup
	modalActive bool
	modalKind   modalKind
	modalVP     viewport.Model
	modalTitle  string
	modalBody   string

	// Values modal state
	valueColumn string
	valueItems  []freq.ValueShare
	valueSel    int
	valuePicked map[string]bool
	valueTitle  string
	valueOps    []filter.OperatorInfo
	valueOp     int

	savedSel int

	helpItems []helpItem
}

type helpItem struct {
	group string
	text  string
	key   tea.Key
}

func keyLabel(k tea.Key) string {
	switch k.Type {
	case tea.KeyRunes:
		if len(k.Runes) == 1 {
			r := k.Runes[0]
			if r == ' ' {
				return "space"
			}
			return string(r)
		}
		return strings.ToLower(string(k.Runes))
	case tea.KeyEnter:
		return "enter"
	case tea.KeyEsc:
		return "esc"
	case tea.KeyTab:
		return "tab"
	case tea.KeyLeft:
		return "left"
	case tea.KeyRight:
		return "right"
	case tea.KeyUp:
		return "up"
	case tea.KeyDown:
		return "down"
	case tea.KeyPgUp:
		return "pgup"
	case tea.KeyPgDown:
		return "pgdown"
	default:
		return strings.ToLower(k.String())
	}
}
