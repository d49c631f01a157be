package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"promptpack/internal/core/ports"
)

// Run starts the interactive UI. The caller is expected to have run an
// initial scan so the first refresh has a snapshot to read from.
func Run(svc ports.AnalysisService, store ports.HistoryStore, root string, maxRows int) error {
	m := initialModel(svc, store, root, maxRows)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if watch := svc.WatchService(); watch != nil {
		watch.Subscribe(func(result ports.ScanResult) {
			p.Send(scanDoneMsg{result: result})
		})
	}

	_, err := p.Run()
	return err
}
