package report

import (
	"fmt"
	"strings"
	"unicode"

	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/graph"
)

type MermaidGenerator struct {
	graph    *graph.Graph
	clusters []cluster.Summary
}

func NewMermaidGenerator(g *graph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

// SetClusters groups modules into subgraphs by their cluster.
func (m *MermaidGenerator) SetClusters(clusters []cluster.Summary) {
	m.clusters = clusters
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 60, 'rankSpacing': 90, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	modules := m.graph.Modules()
	names := make([]string, 0, len(modules))
	for _, mod := range modules {
		names = append(names, mod.ID)
	}
	ids := makeMermaidIDs(names)

	clustered := make(map[string]bool)
	for _, c := range m.clusters {
		if len(c.Modules) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", sanitizeMermaidID(c.Name), escapeMermaidLabel(c.Name)))
		for _, id := range c.Modules {
			mod, ok := m.graph.Module(id)
			if !ok {
				continue
			}
			clustered[id] = true
			b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[id], escapeMermaidLabel(moduleLabel(mod))))
		}
		b.WriteString("  end\n")
	}

	for _, mod := range modules {
		if clustered[mod.ID] {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[mod.ID], escapeMermaidLabel(moduleLabel(mod))))
	}

	folderIDs := make([]string, 0)
	for _, mod := range modules {
		if mod.Kind == graph.KindFolder {
			folderIDs = append(folderIDs, ids[mod.ID])
		}
	}
	if len(folderIDs) > 0 {
		b.WriteString("\n")
		b.WriteString("  classDef folderNode fill:#fffbe6,stroke:#b8a24c,stroke-width:1px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(folderIDs, ","))
		b.WriteString(" folderNode;\n")
	}

	b.WriteString("\n")
	for _, edge := range m.graph.Edges() {
		b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[edge.From], ids[edge.To]))
	}

	return b.String(), nil
}

func moduleLabel(mod *graph.Module) string {
	return fmt.Sprintf("%s\\n(impact %d, %d files)", mod.ID, mod.Impact, len(mod.Files))
}

func sanitizeMermaidID(module string) string {
	if module == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
