package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-lci/pkg/export"
	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/workflow"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginLeft(2)

	activeFilterStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#FF00FF")).
				Padding(0, 2)

	inactiveFilterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Next key.Binding
	Prev key.Binding
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next type"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev type"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type unlinkedRow struct {
	process  *inventory.Process
	exchange *inventory.Exchange
}

// browseModel lists unlinked exchanges with the graph statistics above.
// Filters cycle through "all" and each exchange type.
type browseModel struct {
	report  *workflow.Report
	rows    []unlinkedRow
	visible []unlinkedRow
	filters []string
	filter  int
	table   table.Model
	help    help.Model
	keys    keyMap
	width   int
}

func newBrowseModel(report *workflow.Report) browseModel {
	var rows []unlinkedRow
	for p, exc := range report.Linker.UnlinkedWithProcess() {
		rows = append(rows, unlinkedRow{process: p, exchange: exc})
	}

	columns := []table.Column{
		{Title: "Process", Width: 28},
		{Title: "Type", Width: 12},
		{Title: "Exchange", Width: 40},
		{Title: "Unit", Width: 14},
		{Title: "Location", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := browseModel{
		report:  report,
		rows:    rows,
		filters: append([]string{"all"}, inventory.ExchangeTypes...),
		table:   t,
		help:    help.New(),
		keys:    keys,
	}
	m.applyFilter()
	return m
}

func (m *browseModel) applyFilter() {
	m.visible = nil
	for _, r := range m.rows {
		if m.filter == 0 || r.exchange.Type == m.filters[m.filter] {
			m.visible = append(m.visible, r)
		}
	}

	rows := make([]table.Row, len(m.visible))
	for i, r := range m.visible {
		rows[i] = table.Row{r.process.Name, r.exchange.Type, r.exchange.Name, r.exchange.Unit, r.exchange.Location}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.filter = (m.filter + 1) % len(m.filters)
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.filter = (m.filter + len(m.filters) - 1) % len(m.filters)
			m.applyFilter()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Unlinked exchanges: " + m.report.Database))
	s.WriteString("\n\n")
	s.WriteString(statsBoxStyle.Render(m.report.Statistics.String()))
	s.WriteString("\n\n")
	s.WriteString(m.renderFilters())
	s.WriteString("\n\n")
	s.WriteString(m.table.View())
	s.WriteString("\n")
	s.WriteString(m.renderDetail())
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m browseModel) renderFilters() string {
	rendered := make([]string, len(m.filters))
	for i, f := range m.filters {
		label := f
		if i > 0 {
			label = fmt.Sprintf("%s (%d)", f, m.report.Statistics.UnlinkedByType[f])
		}
		if i == m.filter {
			rendered[i] = activeFilterStyle.Render(label)
		} else {
			rendered[i] = inactiveFilterStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderDetail shows the fields of the selected exchange that do not fit
// in the table
func (m browseModel) renderDetail() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return ""
	}
	exc := m.visible[i].exchange
	var lines []string
	if exc.ReferenceProduct != "" {
		lines = append(lines, "reference product: "+exc.ReferenceProduct)
	}
	if len(exc.Categories) > 0 {
		lines = append(lines, "categories: "+strings.Join(exc.Categories, export.CategorySeparator))
	}
	if exc.Comment != "" {
		lines = append(lines, "comment: "+exc.Comment)
	}
	lines = append(lines, fmt.Sprintf("amount: %g", exc.Amount))
	return detailStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func newBrowseCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse unlinked exchanges interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, _, err := a.inspect(cmd, path)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newBrowseModel(report), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
	addWorkflowFlag(cmd, &path)
	return cmd
}
