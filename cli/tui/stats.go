package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/knotfold/cli/reader"
)

// StatsModel shows one metrics snapshot as stat boxes.
type StatsModel struct {
	snap     *reader.MetricsSnapshot
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(data any) (StatsModel, error) {
	snap, ok := data.(*reader.MetricsSnapshot)
	if !ok || snap == nil {
		return StatsModel{}, fmt.Errorf("invalid data type for stats_metrics: %T", data)
	}
	return StatsModel{snap: snap}, nil
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Metrics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Run ID:"), ValueStyle.Render(s.RunID))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Policy:"), ValueStyle.Render(s.Policy))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Storage:"), ValueStyle.Render(s.StorageBackend))
	fmt.Fprintf(&b, "%s %s\n\n", LabelStyle.Render("Recorded:"), ValueStyle.Render(s.Ts))

	b.WriteString(section("Search",
		statBox("Candidates", s.CandidatesExtracted, highlightColor),
		statBox("Reduced", s.CandidatesReduced, highlightColor),
		statBox("Duplicates", s.DuplicatesDropped, mutedColor),
	))
	b.WriteString(section("Refinement",
		statBox("Accepted", s.TrialsAccepted, successColor),
		statBox("Rejected", s.TrialsRejected, warningColor),
		statBox("Failed", s.TrialsFailed, errorColor),
	))
	b.WriteString(section("Persistence",
		statBox("Received", s.RecordsReceived, highlightColor),
		statBox("Persisted", s.RecordsPersisted, successColor),
		statBox("Dropped", s.RecordsDropped, warningColor),
		statBox("Write failures", s.LodeWriteFailure, errorColor),
	))

	if len(s.FlushTriggers) > 0 {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Flushes:"), ValueStyle.Render(counts(s.FlushTriggers)))
	}
	if len(s.DroppedByKind) > 0 {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Dropped:"), ValueStyle.Render(counts(s.DroppedByKind)))
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func section(title string, boxes ...string) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(highlightColor).Render(title)
	return head + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, boxes...) + "\n"
}

func statBox(label string, value int64, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

func counts(m map[string]int64) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(data any) (string, error) {
	model, err := NewStatsModel(data)
	if err != nil {
		return "", err
	}
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View()), nil
}
