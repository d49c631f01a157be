package tui

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"promptpack/internal/core/ports"
	"promptpack/internal/shared/observability"
)

const recommendationLimit = 5

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if m.err != nil {
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.copyStarted {
		return m, nil
	}

	// Let the list's built-in filter input consume keystrokes first.
	if m.mode == panelModules && m.moduleList.FilterState() == list.Filtering {
		return m.updateActiveList(msg)
	}
	if m.mode == panelClusters && m.clusterList.FilterState() == list.Filtering {
		return m.updateActiveList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Switch):
		if m.mode == panelModules {
			m.mode = panelClusters
			if m.history != nil {
				return m, highImpactCmd(m.history, m.root)
			}
		} else {
			m.mode = panelModules
		}
		return m, nil

	case key.Matches(msg, m.keys.Rescan):
		m.statusMessage = helpStyle.Render("Rescanning...")
		return m, rescanCmd(m.svc)

	case key.Matches(msg, m.keys.ClearSel):
		clear(m.selected)
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.mode == panelClusters {
			ci, ok := m.clusterList.SelectedItem().(clusterItem)
			if ok && m.history != nil {
				return m, similarClustersCmd(m.history, m.root, ci.name)
			}
			return m, nil
		}
		mi, ok := m.moduleList.SelectedItem().(moduleItem)
		if !ok {
			return m, nil
		}
		m.selected[mi.id] = !m.selected[mi.id]
		if m.selected[mi.id] && m.history != nil {
			return m, recommendCmd(m.history, m.root, m.selectedFilePaths(m.selectedModuleIDs()))
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		var req ports.PromptRequest
		if m.mode == panelClusters {
			ci, ok := m.clusterList.SelectedItem().(clusterItem)
			if !ok {
				return m, nil
			}
			req.Cluster = ci.name
		} else {
			ids := m.selectedModuleIDs()
			if len(ids) == 0 {
				// Nothing toggled: fall back to the budgeted selection.
				req = ports.PromptRequest{}
			} else {
				req.ModuleIDs = ids
			}
		}
		m.copyStarted = true
		return m, copyCmd(m, req)
	}

	return m.updateActiveList(msg)
}

func copyCmd(m model, req ports.PromptRequest) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		result, err := m.svc.BuildPrompt(ctx, req)
		if err != nil {
			return copyDoneMsg{err: err}
		}
		if err := m.writeClipboard(result.Content); err != nil {
			return copyDoneMsg{err: err}
		}
		observability.CopyEventsTotal.Inc()

		if m.history != nil {
			paths := make([]string, 0, len(result.Selection.Selected))
			for _, item := range result.Selection.Selected {
				paths = append(paths, m.moduleFiles[item.ID]...)
			}
			if err := m.history.RecordCopyEvent(ctx, m.root, paths); err != nil {
				slog.Warn("failed to record copy event", "error", err)
			}
		}

		return copyDoneMsg{
			bytes: len(result.Content),
			count: len(result.Selection.Selected),
		}
	}
}

func highImpactCmd(store ports.HistoryStore, root string) tea.Cmd {
	return func() tea.Msg {
		records, err := store.HighImpactClusters(context.Background(), root, recommendationLimit)
		if err != nil {
			slog.Debug("high-impact cluster lookup failed", "error", err)
			return historyHintMsg{}
		}
		names := make([]string, 0, len(records))
		for _, r := range records {
			names = append(names, r.Name)
		}
		return historyHintMsg{label: "high-impact in past sessions", names: names}
	}
}

func similarClustersCmd(store ports.HistoryStore, root, clusterName string) tea.Cmd {
	return func() tea.Msg {
		records, err := store.SimilarClusters(context.Background(), root, clusterName, recommendationLimit)
		if err != nil {
			slog.Debug("similar cluster lookup failed", "error", err)
			return historyHintMsg{}
		}
		names := make([]string, 0, len(records))
		for _, r := range records {
			names = append(names, r.RepoRoot)
		}
		return historyHintMsg{label: "same cluster name in other repos", names: names}
	}
}

func recommendCmd(store ports.HistoryStore, root string, selected []string) tea.Cmd {
	return func() tea.Msg {
		recs, err := store.FilesOftenCopiedTogether(context.Background(), root, selected, recommendationLimit)
		if err != nil {
			slog.Debug("recommendation lookup failed", "error", err)
			return recommendMsg{}
		}
		paths := make([]string, 0, len(recs))
		for _, r := range recs {
			paths = append(paths, r.RelativePath)
		}
		return recommendMsg{paths: paths}
	}
}

func writeSystemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
