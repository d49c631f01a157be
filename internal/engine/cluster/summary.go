package cluster

import (
	"fmt"
	"sort"

	"promptpack/internal/engine/graph"
)

// Summary is the flat, display-oriented view of one cluster at a cut.
type Summary struct {
	Name            string
	Modules         []string
	FileCount       int
	AggregateImpact float64
}

// Summarize ranks cut clusters for presentation. When aggregate is
// true the cluster impact is the sum of member centralities (the
// folder-as-module aggregation choice); otherwise the maximum member
// centrality stands for the whole cluster. Clusters below threshold
// are filtered out.
func Summarize(g *graph.Graph, clusters [][]string, threshold float64, aggregate bool) []Summary {
	out := make([]Summary, 0, len(clusters))
	for i, members := range clusters {
		s := Summary{
			Name:    fmt.Sprintf("Cluster %d", i+1),
			Modules: members,
		}
		for _, id := range members {
			m, ok := g.Module(id)
			if !ok {
				continue
			}
			s.FileCount += len(m.Files)
			if aggregate {
				s.AggregateImpact += m.Centrality
			} else if m.Centrality > s.AggregateImpact {
				s.AggregateImpact = m.Centrality
			}
		}
		if s.AggregateImpact < threshold {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AggregateImpact != b.AggregateImpact {
			return a.AggregateImpact > b.AggregateImpact
		}
		if a.FileCount != b.FileCount {
			return a.FileCount > b.FileCount
		}
		return a.Name < b.Name
	})
	return out
}
