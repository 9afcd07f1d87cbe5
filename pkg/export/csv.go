// Package export renders a session graph as CSV node/edge lists or a
// GEXF document for downstream graph tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/netneighbors/netneighbors/pkg/model"
)

// NodesCSV writes one row per node with the columns
// domain,type,hop,connections, ordered by domain.
func NodesCSV(w io.Writer, g *model.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"domain", "type", "hop", "connections"}); err != nil {
		return fmt.Errorf("writing node header: %w", err)
	}
	for _, node := range g.SortedNodes() {
		record := []string{
			node.ID,
			string(node.Kind),
			strconv.Itoa(node.Hop),
			strconv.Itoa(node.Connections),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing node %s: %w", node.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EdgesCSV writes one row per edge with the columns source,target,
// ordered by source then target.
func EdgesCSV(w io.Writer, g *model.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "target"}); err != nil {
		return fmt.Errorf("writing edge header: %w", err)
	}
	for _, edge := range g.SortedEdges() {
		if err := cw.Write([]string{edge.Source, edge.Target}); err != nil {
			return fmt.Errorf("writing edge %s->%s: %w", edge.Source, edge.Target, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
