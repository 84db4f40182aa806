package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/knotfold/cli/reader"
)

// InspectModel browses the structures of one prediction. The table holds
// the aggregate; the pane below shows the selected dot-bracket.
type InspectModel struct {
	viewType string
	detail   *reader.RunDetail
	table    table.Model
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) (InspectModel, error) {
	detail, ok := data.(*reader.RunDetail)
	if !ok || detail == nil {
		return InspectModel{}, fmt.Errorf("invalid data type for %s: %T", viewType, data)
	}

	columns := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Energy", Width: 8},
		{Title: "PK", Width: 7},
		{Title: "Helix", Width: 22},
	}
	rows := make([]table.Row, 0, len(detail.Structures))
	for _, r := range detail.Rows() {
		// Drop the dot-bracket column; the detail pane shows it in full.
		rows = append(rows, table.Row(r[:len(columns)]))
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primaryColor)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 12)),
		table.WithStyles(styles),
	)

	return InspectModel{viewType: viewType, detail: detail, table: t}, nil
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Selected returns the structure under the cursor.
func (m InspectModel) Selected() (reader.StructureView, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.detail.Structures) {
		return reader.StructureView{}, false
	}
	return m.detail.Structures[i], true
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if len(m.detail.Structures) == 0 {
		b.WriteString(WarningStyle.Render("No structures recorded."))
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(m.renderSelected())
	}

	help := HelpStyle.Render("↑/↓ select structure • q quit")
	return b.String() + "\n" + help
}

func (m InspectModel) renderHeader() string {
	d := m.detail

	title := "Prediction " + d.Label
	if m.viewType == "inspect_archive" {
		title += " (archive)"
	}

	rows := [][2]string{
		{"Run ID", d.RunID},
		{"Alphabet", d.Alphabet},
		{"Length", strconv.FormatInt(d.Length, 10)},
		{"E0", fmt.Sprintf("%.1f kcal/mol", d.E0Kcal)},
	}
	if d.Outcome != "" {
		rows = append(rows, [2]string{"Outcome", d.Outcome})
	}
	if d.Candidates > 0 {
		rows = append(rows, [2]string{"Candidates", fmt.Sprintf("%d (%d after reduction)", d.Candidates, d.Reduced)})
		rows = append(rows, [2]string{"Trials", fmt.Sprintf("%d accepted, %d rejected, %d failed", d.Accepted, d.Rejected, d.Failed)})
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	for _, row := range rows {
		value := ValueStyle.Render(row[1])
		if row[0] == "Outcome" {
			value = OutcomeStyle(row[1]).Render(row[1])
		}
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), value)
	}
	return b.String()
}

func (m InspectModel) renderSelected() string {
	s, ok := m.Selected()
	if !ok {
		return ""
	}

	width := m.width - 6
	if width <= 0 {
		width = 74
	}

	var b strings.Builder
	if m.detail.Sequence != "" {
		for _, line := range wrap(m.detail.Sequence, width) {
			b.WriteString(ValueStyle.Render(line))
			b.WriteString("\n")
		}
	}
	for i, line := range wrap(s.DotBracket, width) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(colorDotBracket(line))
	}
	if s.NeedsReview {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("crossing test incomplete for this topology"))
	}
	return BoxStyle.Render(b.String())
}

// colorDotBracket styles nested pairs and crossing layers apart.
func colorDotBracket(db string) string {
	var b strings.Builder
	for _, c := range db {
		switch c {
		case '(', ')':
			b.WriteString(PairStyle.Render(string(c)))
		case '[', ']', '{', '}', '<', '>':
			b.WriteString(KnotStyle.Render(string(c)))
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// wrap splits s into lines of at most width bytes.
func wrap(s string, width int) []string {
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	return append(lines, s)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) (string, error) {
	model, err := NewInspectModel(viewType, data)
	if err != nil {
		return "", err
	}
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View()), nil
}
