// Package graph holds the dependency graph for one scan snapshot.
// A Builder accumulates modules and resolved edges during a scan; the
// finished Graph is immutable and read without locking downstream.
package graph

import (
	"sort"

	"promptpack/internal/shared/util"
)

type ModuleKind string

const (
	KindFile   ModuleKind = "file"
	KindFolder ModuleKind = "folder"
)

type Module struct {
	// ID is the module path relative to the scan root. Folder-as-module
	// nodes use the directory path; the root directory is ".".
	ID    string
	Kind  ModuleKind
	Files []string
	Size  int64

	// Impact is the number of distinct modules importing this one.
	Impact int
	// Centrality is Impact normalized by (module count - 1), the
	// in-degree centrality definition.
	Centrality float64
}

type Edge struct {
	From string
	To   string
}

type Builder struct {
	modules map[string]*Module
	out     map[string]map[string]bool
	in      map[string]map[string]bool
}

func NewBuilder() *Builder {
	return &Builder{
		modules: make(map[string]*Module),
		out:     make(map[string]map[string]bool),
		in:      make(map[string]map[string]bool),
	}
}

// AddModule registers a node. Isolated modules stay in the graph even
// when no edge ever references them.
func (b *Builder) AddModule(m *Module) {
	existing, ok := b.modules[m.ID]
	if !ok {
		c := *m
		c.Files = append([]string(nil), m.Files...)
		b.modules[m.ID] = &c
		return
	}
	// Same module reported twice (e.g. a folder module seen from two
	// member files): merge file lists and sizes.
	seen := make(map[string]bool, len(existing.Files))
	for _, f := range existing.Files {
		seen[f] = true
	}
	for _, f := range m.Files {
		if !seen[f] {
			existing.Files = append(existing.Files, f)
			seen[f] = true
		}
	}
	if existing.Kind != m.Kind && m.Kind == KindFolder {
		existing.Kind = KindFolder
	}
	existing.Size += m.Size
}

// AddEdge records from->to. Self-edges are excluded and duplicate edges
// between the same pair collapse, so impact counting is idempotent.
// Unknown endpoints become nodes with no files.
func (b *Builder) AddEdge(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	b.ensureNode(from)
	b.ensureNode(to)
	if b.out[from] == nil {
		b.out[from] = make(map[string]bool)
	}
	b.out[from][to] = true
	if b.in[to] == nil {
		b.in[to] = make(map[string]bool)
	}
	b.in[to][from] = true
}

func (b *Builder) ensureNode(id string) {
	if _, ok := b.modules[id]; !ok {
		b.modules[id] = &Module{ID: id, Kind: KindFile}
	}
}

// Build freezes the accumulated state into an immutable Graph and
// computes impact scores.
func (b *Builder) Build() *Graph {
	g := &Graph{
		modules: make(map[string]*Module, len(b.modules)),
		out:     make(map[string][]string, len(b.out)),
		in:      make(map[string][]string, len(b.in)),
	}

	order := util.SortedStringKeys(b.modules)
	g.order = order

	n := len(order)
	for _, id := range order {
		m := b.modules[id]
		c := *m
		c.Files = append([]string(nil), m.Files...)
		sort.Strings(c.Files)
		c.Impact = len(b.in[id])
		if n > 1 {
			c.Centrality = float64(c.Impact) / float64(n-1)
		}
		g.modules[id] = &c

		g.out[id] = edgeTargets(b.out[id])
		g.in[id] = edgeTargets(b.in[id])
	}
	return g
}

type Graph struct {
	modules map[string]*Module
	out     map[string][]string
	in      map[string][]string
	order   []string
}

func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) Module(id string) (*Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// Modules returns all modules in lexical ID order.
func (g *Graph) Modules() []*Module {
	res := make([]*Module, 0, len(g.order))
	for _, id := range g.order {
		res = append(res, g.modules[id])
	}
	return res
}

// Ranked returns modules by impact descending; ties break by file count
// descending, then lexical ID, so rankings are stable across runs.
func (g *Graph) Ranked() []*Module {
	res := g.Modules()
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Impact != b.Impact {
			return a.Impact > b.Impact
		}
		if len(a.Files) != len(b.Files) {
			return len(a.Files) > len(b.Files)
		}
		return a.ID < b.ID
	})
	return res
}

// Dependencies lists modules id imports, lexically ordered.
func (g *Graph) Dependencies(id string) []string {
	return g.out[id]
}

// Dependents lists modules importing id, lexically ordered.
func (g *Graph) Dependents(id string) []string {
	return g.in[id]
}

func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.order {
		for _, to := range g.out[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Neighbors returns the undirected adjacency of id, for distance
// computations that ignore edge direction.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var res []string
	for _, to := range g.out[id] {
		if !seen[to] {
			seen[to] = true
			res = append(res, to)
		}
	}
	for _, from := range g.in[id] {
		if !seen[from] {
			seen[from] = true
			res = append(res, from)
		}
	}
	sort.Strings(res)
	return res
}

func edgeTargets(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	return util.SortedStringKeys(set)
}
