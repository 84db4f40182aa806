package tui

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

var views = map[string]func(data any) (tea.Model, error){
	"inspect_run":     inspectView("inspect_run"),
	"inspect_archive": inspectView("inspect_archive"),
	"stats_metrics": func(data any) (tea.Model, error) {
		m, err := NewStatsModel(data)
		return m, err
	},
}

func inspectView(viewType string) func(any) (tea.Model, error) {
	return func(data any) (tea.Model, error) {
		m, err := NewInspectModel(viewType, data)
		return m, err
	}
}

// Run shows viewType full-screen until the user quits.
func Run(viewType string, data any) error {
	newModel, ok := views[viewType]
	if !ok {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	model, err := newModel(data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func IsTUISupported(viewType string) bool {
	_, ok := views[viewType]
	return ok
}

// SupportedTUIViews lists the view types in sorted order.
func SupportedTUIViews() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
