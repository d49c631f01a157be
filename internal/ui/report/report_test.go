package report

import (
	"strings"
	"testing"

	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/graph"
)

func buildTestGraph() *graph.Graph {
	b := graph.NewBuilder()
	b.AddModule(&graph.Module{ID: "api.py", Kind: graph.KindFile, Files: []string{"api.py"}, Size: 100})
	b.AddModule(&graph.Module{ID: "core/db.py", Kind: graph.KindFile, Files: []string{"core/db.py"}, Size: 200})
	b.AddModule(&graph.Module{ID: "pkg", Kind: graph.KindFolder, Files: []string{"pkg/a.py", "pkg/b.py"}, Size: 300})
	b.AddEdge("api.py", "core/db.py")
	b.AddEdge("api.py", "pkg")
	return b.Build()
}

func TestDOTGenerator(t *testing.T) {
	g := buildTestGraph()
	gen := NewDOTGenerator(g)
	dot, err := gen.Generate(map[string]bool{"core/db.py": true})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(dot, "digraph modules") {
		t.Error("DOT output missing digraph header")
	}
	if !strings.Contains(dot, "\"api.py\" -> \"core/db.py\"") {
		t.Error("DOT output missing edge api.py -> core/db.py")
	}
	if !strings.Contains(dot, "impact 1") {
		t.Error("DOT output missing impact label for core/db.py")
	}
	if !strings.Contains(dot, "mistyrose") {
		t.Error("DOT output missing highlight fill for core/db.py")
	}
	if !strings.Contains(dot, "lightyellow") {
		t.Error("DOT output missing folder module styling")
	}
}

func TestMermaidGenerator(t *testing.T) {
	g := buildTestGraph()
	gen := NewMermaidGenerator(g)
	out, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "flowchart LR") {
		t.Error("mermaid output missing flowchart header")
	}
	if !strings.Contains(out, "api_py --> core_db_py") {
		t.Error("mermaid output missing edge api.py -> core/db.py")
	}
	if !strings.Contains(out, "classDef folderNode") {
		t.Error("mermaid output missing folder classDef")
	}
	if !strings.Contains(out, "class pkg folderNode") {
		t.Error("mermaid output missing folder class assignment")
	}
}

func TestMermaidGeneratorClusters(t *testing.T) {
	g := buildTestGraph()
	gen := NewMermaidGenerator(g)
	gen.SetClusters([]cluster.Summary{
		{Name: "core", Modules: []string{"api.py", "core/db.py"}},
	})
	out, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "subgraph core[\"core\"]") {
		t.Error("mermaid output missing cluster subgraph")
	}
	if !strings.Contains(out, "end") {
		t.Error("mermaid output missing subgraph terminator")
	}
	// Modules outside any cluster still render as plain nodes.
	if !strings.Contains(out, "pkg[\"pkg") {
		t.Error("mermaid output missing unclustered module")
	}
}

func TestMermaidIDCollisions(t *testing.T) {
	ids := makeMermaidIDs([]string{"a/b.py", "a_b.py", "a.b_py"})
	seen := make(map[string]bool)
	for name, id := range ids {
		if seen[id] {
			t.Errorf("duplicate mermaid id %q for %q", id, name)
		}
		seen[id] = true
	}
}
