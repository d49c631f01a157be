// Package report renders the module graph as Graphviz DOT and Mermaid
// diagrams for docs and terminal-adjacent tooling.
package report

import (
	"fmt"
	"strings"

	"promptpack/internal/engine/graph"
)

type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the graph; modules in highlight (e.g. the current
// selection) are drawn emphasized.
func (d *DOTGenerator) Generate(highlight map[string]bool) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.5;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	for _, mod := range d.graph.Modules() {
		label := fmt.Sprintf("%s\\n(impact %d, %d files)", mod.ID, mod.Impact, len(mod.Files))

		switch {
		case highlight[mod.ID]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", style=\"rounded,filled\", color=\"red\", penwidth=2.0];\n", mod.ID, label))
		case mod.Kind == graph.KindFolder:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"lightyellow\", style=\"rounded,filled\", color=\"darkslategrey\"];\n", mod.ID, label))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", mod.ID, label))
		}
	}
	buf.WriteString("\n")

	for _, edge := range d.graph.Edges() {
		buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", penwidth=1.4];\n", edge.From, edge.To))
	}

	buf.WriteString("}\n")

	return buf.String(), nil
}
