package cluster

import "promptpack/internal/engine/graph"

// distanceMatrix computes pairwise undirected shortest-path lengths
// between the given module IDs. Pairs in different components get
// disconnected, keeping the matrix finite and the merge order stable.
func distanceMatrix(g *graph.Graph, ids []string, disconnected float64) [][]float64 {
	n := len(ids)
	pos := make(map[string]int, n)
	for i, id := range ids {
		pos[id] = i
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = disconnected
			}
		}
	}

	// BFS per source over the undirected adjacency.
	for i, src := range ids {
		depth := map[string]int{src: 0}
		queue := []string{src}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range g.Neighbors(cur) {
				if _, seen := depth[next]; seen {
					continue
				}
				depth[next] = depth[cur] + 1
				queue = append(queue, next)
			}
		}
		for id, d := range depth {
			if j, ok := pos[id]; ok && j != i {
				dist[i][j] = float64(d)
			}
		}
	}

	return dist
}
