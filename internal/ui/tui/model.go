// Package tui is the interactive terminal front end. It lists ranked
// modules and clusters, lets the user toggle a selection, and copies
// the assembled prompt to the system clipboard.
package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"promptpack/internal/core/ports"
	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/graph"
)

type panel int

const (
	panelModules panel = iota
	panelClusters
)

var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	itemStyle     = lipgloss.NewStyle().PaddingLeft(0)
	focusedStyle  = lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("75")).Bold(true)
	checkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusOKStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type moduleItem struct {
	id     string
	impact int
	files  int
	size   int64
}

func (i moduleItem) Title() string {
	return fmt.Sprintf("%s  (impact %d, %d files, %d bytes)", i.id, i.impact, i.files, i.size)
}
func (i moduleItem) Description() string { return "" }
func (i moduleItem) FilterValue() string { return i.id }

type clusterItem struct {
	name    string
	modules int
	files   int
	impact  float64
}

func (i clusterItem) Title() string {
	return fmt.Sprintf("%s  (%d modules, %d files, impact %.2f)", i.name, i.modules, i.files, i.impact)
}
func (i clusterItem) Description() string { return "" }
func (i clusterItem) FilterValue() string { return i.name }

type keyMap struct {
	Toggle   key.Binding
	Copy     key.Binding
	Rescan   key.Binding
	Switch   key.Binding
	Quit     key.Binding
	ClearSel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "m"),
			key.WithHelp("space/m", "toggle select"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "enter"),
			key.WithHelp("c/enter", "copy prompt"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		ClearSel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear selection"),
		),
	}
}

// Messages delivered to Update. refreshMsg carries a fresh module and
// cluster listing after a scan; copyDoneMsg reports the clipboard copy.
type refreshMsg struct {
	modules  []graph.Module
	clusters []cluster.Summary
	err      error
}

type copyDoneMsg struct {
	bytes int
	count int
	err   error
}

type recommendMsg struct {
	paths []string
}

type historyHintMsg struct {
	label string
	names []string
}

type clearStatusMsg struct{}

type scanDoneMsg struct {
	result ports.ScanResult
	err    error
}

func clearStatusCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

type model struct {
	svc     ports.AnalysisService
	history ports.HistoryStore
	root    string

	mode        panel
	moduleList  list.Model
	clusterList list.Model
	keys        keyMap

	selected    map[string]bool
	moduleFiles map[string][]string

	statusMessage string
	err           error
	quitting      bool
	copyStarted   bool

	// writeClipboard is swapped out in tests.
	writeClipboard func(string) error
}

func initialModel(svc ports.AnalysisService, store ports.HistoryStore, root string, maxRows int) model {
	m := model{
		svc:            svc,
		history:        store,
		root:           root,
		mode:           panelModules,
		keys:           defaultKeyMap(),
		selected:       make(map[string]bool),
		moduleFiles:    make(map[string][]string),
		writeClipboard: writeSystemClipboard,
	}

	if maxRows <= 0 {
		maxRows = 20
	}

	moduleDelegate := newItemDelegate(&m.selected)
	ml := list.New([]list.Item{}, moduleDelegate, 0, maxRows)
	ml.Title = "Modules by impact"
	ml.Styles.Title = titleStyle
	ml.SetShowStatusBar(false)
	ml.SetFilteringEnabled(true)
	ml.SetShowHelp(true)
	ml.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{m.keys.Toggle, m.keys.Copy, m.keys.Rescan, m.keys.Switch, m.keys.ClearSel, m.keys.Quit}
	}
	m.moduleList = ml

	cl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, maxRows)
	cl.Title = "Clusters"
	cl.Styles.Title = titleStyle
	cl.SetShowStatusBar(false)
	cl.SetFilteringEnabled(true)
	cl.SetShowHelp(true)
	m.clusterList = cl

	return m
}

func (m model) Init() tea.Cmd {
	return refreshCmd(m.svc)
}

func refreshCmd(svc ports.AnalysisService) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		modules, err := svc.RankedModules(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		clusters, err := svc.Clusters(ctx, ports.ClusterRequest{})
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{modules: modules, clusters: clusters}
	}
}

func rescanCmd(svc ports.AnalysisService) tea.Cmd {
	return func() tea.Msg {
		result, err := svc.RunScan(context.Background(), ports.ScanRequest{})
		return scanDoneMsg{result: result, err: err}
	}
}

func (m *model) applyRefresh(msg refreshMsg) {
	if msg.err != nil {
		m.err = msg.err
		return
	}
	m.err = nil

	items := make([]list.Item, 0, len(msg.modules))
	m.moduleFiles = make(map[string][]string, len(msg.modules))
	known := make(map[string]bool, len(msg.modules))
	for _, mod := range msg.modules {
		known[mod.ID] = true
		m.moduleFiles[mod.ID] = mod.Files
		items = append(items, moduleItem{
			id:     mod.ID,
			impact: mod.Impact,
			files:  len(mod.Files),
			size:   mod.Size,
		})
	}
	m.moduleList.SetItems(items)

	// Drop selections for modules that vanished in the rescan.
	for id := range m.selected {
		if !known[id] {
			delete(m.selected, id)
		}
	}

	clusterItems := make([]list.Item, 0, len(msg.clusters))
	for _, c := range msg.clusters {
		clusterItems = append(clusterItems, clusterItem{
			name:    c.Name,
			modules: len(c.Modules),
			files:   c.FileCount,
			impact:  c.AggregateImpact,
		})
	}
	m.clusterList.SetItems(clusterItems)
}

func (m model) selectedModuleIDs() []string {
	ids := make([]string, 0, len(m.selected))
	for _, it := range m.moduleList.Items() {
		mi, ok := it.(moduleItem)
		if !ok {
			continue
		}
		if m.selected[mi.id] {
			ids = append(ids, mi.id)
		}
	}
	return ids
}

func (m model) selectedFilePaths(ids []string) []string {
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, m.moduleFiles[id]...)
	}
	return paths
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.moduleList.SetSize(msg.Width-h, msg.Height-v-2)
		m.clusterList.SetSize(msg.Width-h, msg.Height-v-2)
		return m, nil

	case refreshMsg:
		m.applyRefresh(msg)
		return m, nil

	case scanDoneMsg:
		if msg.err != nil {
			m.statusMessage = errorStyle.Render(fmt.Sprintf("scan failed: %v", msg.err))
			return m, clearStatusCmd(3 * time.Second)
		}
		m.statusMessage = fmt.Sprintf("scan %s: %d files, %d modules", msg.result.Status, msg.result.FilesAnalyzed, msg.result.ModuleCount)
		return m, tea.Batch(refreshCmd(m.svc), clearStatusCmd(3*time.Second))

	case copyDoneMsg:
		m.copyStarted = false
		if msg.err != nil {
			m.statusMessage = errorStyle.Render(fmt.Sprintf("copy failed: %v", msg.err))
		} else {
			m.statusMessage = statusOKStyle.Render(fmt.Sprintf("copied %d modules (%d bytes)", msg.count, msg.bytes))
		}
		return m, clearStatusCmd(3 * time.Second)

	case recommendMsg:
		if len(msg.paths) > 0 {
			m.statusMessage = helpStyle.Render("often copied with: " + joinLimited(msg.paths, 3))
			return m, clearStatusCmd(4 * time.Second)
		}
		return m, nil

	case historyHintMsg:
		if len(msg.names) > 0 {
			m.statusMessage = helpStyle.Render(msg.label + ": " + joinLimited(msg.names, 3))
			return m, clearStatusCmd(4 * time.Second)
		}
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	}

	return m.updateActiveList(msg)
}

func (m model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == panelClusters {
		m.clusterList, cmd = m.clusterList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		errStr := errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
		return docStyle.Render(errStr + helpStyle.Render("\n\nPress q to exit."))
	}
	if m.quitting {
		return docStyle.Render("Exiting...")
	}

	var body string
	if m.mode == panelClusters {
		body = m.clusterList.View()
	} else {
		body = m.moduleList.View()
	}

	infoLine := m.statusMessage
	if m.copyStarted {
		infoLine = helpStyle.Render("Assembling prompt...")
	}
	if infoLine == "" {
		infoLine = helpStyle.Render(fmt.Sprintf("%d selected · space toggle · c copy · tab clusters · r rescan", len(m.selectedModuleIDs())))
	}

	return docStyle.Render(body + "\n" + infoLine)
}

func joinLimited(paths []string, max int) string {
	if len(paths) <= max {
		out := ""
		for i, p := range paths {
			if i > 0 {
				out += ", "
			}
			out += p
		}
		return out
	}
	return joinLimited(paths[:max], max) + fmt.Sprintf(" (+%d more)", len(paths)-max)
}

// itemDelegate renders module rows with a selection checkbox, reading
// selection state through a shared map pointer.
type itemDelegate struct {
	selected *map[string]bool
}

func newItemDelegate(selected *map[string]bool) itemDelegate {
	return itemDelegate{selected: selected}
}

func (d itemDelegate) Height() int  { return 1 }
func (d itemDelegate) Spacing() int { return 0 }

func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	mi, ok := listItem.(moduleItem)
	if !ok {
		return
	}

	checkbox := "[ ] "
	if (*d.selected)[mi.id] {
		checkbox = checkedStyle.Render("[x] ")
	}

	line := checkbox + mi.Title()
	if index == m.Index() {
		fmt.Fprint(w, focusedStyle.Render(line))
	} else {
		fmt.Fprint(w, itemStyle.Render(line))
	}
}
