package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"trialscope/internal/config"
	"trialscope/internal/model"
	"trialscope/internal/view"
)

// maxCell truncates long cells in terminal tables.
const maxCell = 40

func headerColor(theme config.Theme) lipgloss.Color {
	if theme == config.ThemeLight {
		return lipgloss.Color("27")
	}
	return lipgloss.Color("81")
}

func printTable(w io.Writer, theme config.Theme, headers []string, rows [][]string) {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(headerColor(theme))
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	fmt.Fprintln(w, t.Render())
}

// printPage writes one page of rows through proj followed by the page line.
func printPage(w io.Writer, theme config.Theme, proj *view.Projection, rows []model.Row, page, size int) {
	window, info := view.Paginate(rows, page, size)
	cells := make([][]string, len(window))
	for i, r := range window {
		vals := proj.Cells(r)
		line := make([]string, len(vals))
		for j, v := range vals {
			line[j] = truncate(model.Stringify(v), maxCell)
		}
		cells[i] = line
	}
	printTable(w, theme, proj.Visible(), cells)
	fmt.Fprintf(w, "%s (page %d of %d)\n", info.Showing(), info.CurrentPage, max(1, info.TotalPages))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
