package discovery

import (
	"context"
	"fmt"

	"github.com/netneighbors/netneighbors/pkg/model"
)

// Group describes one seed category for an intersection analysis.
type Group struct {
	Kind           model.NodeKind
	Seeds          []string
	MinConnections int
}

// IntersectBacklinkers finds domains that backlink to at least
// groupA.MinConnections seeds of group A AND groupB.MinConnections
// seeds of group B. The output graph holds the seeds of both groups
// tagged by their kind, the shared connectors tagged sharedKind, and
// only the edges actually observed between them.
//
// A connector's per-group connection counts are recomputed from the
// filtered edge sets, so they reflect the seeds shown in the graph,
// not the original aggregate counts. Seeds no shared connector links
// to are excluded entirely.
func (e *Engine) IntersectBacklinkers(ctx context.Context, groupA, groupB Group, sharedKind model.NodeKind) (*model.Graph, error) {
	resultA, err := e.Discover(ctx, groupA.Seeds, groupA.MinConnections, model.Backlinks)
	if err != nil {
		return nil, fmt.Errorf("discovering %s backlinkers: %w", groupA.Kind, err)
	}
	resultB, err := e.Discover(ctx, groupB.Seeds, groupB.MinConnections, model.Backlinks)
	if err != nil {
		return nil, fmt.Errorf("discovering %s backlinkers: %w", groupB.Kind, err)
	}

	inA := make(map[string]bool, len(resultA.Entries))
	for _, entry := range resultA.Entries {
		inA[entry.Domain] = true
	}
	shared := make(map[string]bool)
	for _, entry := range resultB.Entries {
		if inA[entry.Domain] {
			shared[entry.Domain] = true
		}
	}

	// Backlink edges run connector -> seed, so filtering by source
	// keeps exactly the edges touching shared connectors.
	edgesA := filterBySource(resultA.Edges, shared)
	edgesB := filterBySource(resultB.Edges, shared)

	graph := model.NewGraph()

	// Seeds survive only if a shared connector actually links to them.
	for _, edge := range edgesA {
		graph.AddNode(&model.Node{ID: edge.Target, Kind: groupA.Kind})
	}
	for _, edge := range edgesB {
		graph.AddNode(&model.Node{ID: edge.Target, Kind: groupB.Kind})
	}

	countsA := countBySource(edgesA)
	countsB := countBySource(edgesB)
	for connector := range shared {
		a, b := countsA[connector], countsB[connector]
		graph.AddNode(&model.Node{
			ID:          connector,
			Kind:        sharedKind,
			Hop:         1,
			Connections: a + b,
			GroupConnections: map[model.NodeKind]int{
				groupA.Kind: a,
				groupB.Kind: b,
			},
		})
	}

	for _, edge := range edgesA {
		graph.AddEdge(edge.Source, edge.Target)
	}
	for _, edge := range edgesB {
		graph.AddEdge(edge.Source, edge.Target)
	}

	return graph, nil
}

func filterBySource(edges []model.Edge, sources map[string]bool) []model.Edge {
	var out []model.Edge
	for _, e := range edges {
		if sources[e.Source] {
			out = append(out, e)
		}
	}
	return out
}

func countBySource(edges []model.Edge) map[string]int {
	counts := make(map[string]int)
	for _, e := range edges {
		counts[e.Source]++
	}
	return counts
}
