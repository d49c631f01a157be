// Package cluster derives a dendrogram over the dependency graph by
// agglomerative merging. Distance is undirected shortest-path length;
// linkage is average (Lance-Williams update), the same choice the
// clustering this models was tuned with. Both are deterministic: ties
// break on the lexically smallest cluster representative.
package cluster

import (
	"sort"

	"promptpack/internal/engine/graph"
)

const DefaultDisconnectedDistance = 1000.0

type Options struct {
	// DisconnectedDistance is the pairwise distance assigned to modules
	// in different components. Zero selects the default.
	DisconnectedDistance float64
}

// Merge records one agglomerative step. Node indexes follow the usual
// linkage convention: 0..n-1 are leaves, n+i is the cluster formed by
// merge i.
type Merge struct {
	Left   int
	Right  int
	Height float64
	Size   int
}

type Dendrogram struct {
	// Leaves are the clustered module IDs in lexical order. Only
	// modules touching at least one edge participate.
	Leaves []string
	Merges []Merge
}

// Build runs agglomerative clustering over every module with at least
// one edge endpoint. Zero or one such modules produce a trivial
// dendrogram with no merges.
func Build(g *graph.Graph, opts Options) *Dendrogram {
	disconnected := opts.DisconnectedDistance
	if disconnected <= 0 {
		disconnected = DefaultDisconnectedDistance
	}

	var ids []string
	for _, m := range g.Modules() {
		if len(g.Neighbors(m.ID)) > 0 {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)

	d := &Dendrogram{Leaves: ids}
	n := len(ids)
	if n <= 1 {
		return d
	}

	dist := distanceMatrix(g, ids, disconnected)

	type cl struct {
		node   int
		size   int
		rep    string // lexically smallest leaf, for tie-breaking
		active bool
	}

	clusters := make([]*cl, 0, 2*n-1)
	for i, id := range ids {
		clusters = append(clusters, &cl{node: i, size: 1, rep: id, active: true})
	}

	// dists is indexed by cluster slot and grows as merges append rows.
	dists := make([][]float64, 0, 2*n-1)
	for i := 0; i < n; i++ {
		row := make([]float64, n, 2*n-1)
		copy(row, dist[i])
		dists = append(dists, row)
	}
	getDist := func(i, j int) float64 {
		if j < len(dists[i]) {
			return dists[i][j]
		}
		return dists[j][i]
	}

	for step := 0; step < n-1; step++ {
		bestI, bestJ := -1, -1
		bestD := 0.0
		for i := 0; i < len(clusters); i++ {
			if !clusters[i].active {
				continue
			}
			for j := i + 1; j < len(clusters); j++ {
				if !clusters[j].active {
					continue
				}
				dij := getDist(i, j)
				better := bestI == -1 || dij < bestD
				if !better && dij == bestD {
					// Tie: prefer the pair with the lexically smallest
					// representatives so merge order is reproducible.
					ri, rj := orderedReps(clusters[i].rep, clusters[j].rep)
					bi, bj := orderedReps(clusters[bestI].rep, clusters[bestJ].rep)
					if ri < bi || (ri == bi && rj < bj) {
						better = true
					}
				}
				if better {
					bestI, bestJ, bestD = i, j, dij
				}
			}
		}

		ci, cj := clusters[bestI], clusters[bestJ]
		merged := &cl{
			node:   len(clusters),
			size:   ci.size + cj.size,
			rep:    minString(ci.rep, cj.rep),
			active: true,
		}
		ci.active = false
		cj.active = false

		// Average linkage: d(k, i+j) = (|i|*d(k,i) + |j|*d(k,j)) / |i+j|.
		row := make([]float64, len(clusters))
		for k := 0; k < len(clusters); k++ {
			if !clusters[k].active {
				continue
			}
			row[k] = (float64(ci.size)*getDist(k, bestI) + float64(cj.size)*getDist(k, bestJ)) / float64(merged.size)
		}
		clusters = append(clusters, merged)
		dists = append(dists, row)

		d.Merges = append(d.Merges, Merge{
			Left:   ci.node,
			Right:  cj.node,
			Height: bestD,
			Size:   merged.size,
		})
	}

	return d
}

func (d *Dendrogram) LeafCount() int {
	return len(d.Leaves)
}

// RootHeight is the height of the final merge, zero for trivial trees.
func (d *Dendrogram) RootHeight() float64 {
	if len(d.Merges) == 0 {
		return 0
	}
	return d.Merges[len(d.Merges)-1].Height
}

// LeafSet returns the sorted module IDs under a node index. Unknown
// indexes yield nil.
func (d *Dendrogram) LeafSet(node int) []string {
	n := len(d.Leaves)
	if node < 0 || node >= n+len(d.Merges) {
		return nil
	}
	if node < n {
		return []string{d.Leaves[node]}
	}
	m := d.Merges[node-n]
	out := append(d.LeafSet(m.Left), d.LeafSet(m.Right)...)
	sort.Strings(out)
	return out
}

// CutAtHeight applies every merge with height <= h and returns the flat
// clusters, each sorted, ordered by first member. Cutting at 0 yields
// singletons; cutting at RootHeight yields one cluster.
func (d *Dendrogram) CutAtHeight(h float64) [][]string {
	applied := 0
	for applied < len(d.Merges) && d.Merges[applied].Height <= h {
		applied++
	}
	return d.flatten(applied)
}

// CutMaxClusters applies merges in order until at most k clusters
// remain, mirroring the maxclust criterion.
func (d *Dendrogram) CutMaxClusters(k int) [][]string {
	if k < 1 {
		k = 1
	}
	applied := len(d.Merges)
	if n := len(d.Leaves); n > k {
		applied = n - k
	} else {
		applied = 0
	}
	return d.flatten(applied)
}

func (d *Dendrogram) flatten(applied int) [][]string {
	n := len(d.Leaves)
	if n == 0 {
		return nil
	}

	parent := make([]int, n+applied)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	// Each applied merge unions its children into the new node's slot.
	for i := 0; i < applied; i++ {
		m := d.Merges[i]
		node := n + i
		for _, child := range []int{m.Left, m.Right} {
			if child < len(parent) {
				parent[find(child)] = node
			}
		}
	}

	groups := make(map[int][]string)
	for i, id := range d.Leaves {
		root := find(i)
		groups[root] = append(groups[root], id)
	}

	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i][0] < out[j][0]
	})
	return out
}

func orderedReps(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func minString(a, b string) string {
	if a < b {
		return a
	}
	return b
}
