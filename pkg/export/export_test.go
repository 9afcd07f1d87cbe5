package export

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/netneighbors/netneighbors/pkg/model"
)

func exportFixture() *model.Graph {
	g := model.NewGraph()
	g.AddNode(&model.Node{ID: "cnn.com", Kind: model.KindSeed, Hop: 0, Connections: 0})
	g.AddNode(&model.Node{ID: "a.com", Kind: model.KindDiscovered, Hop: 1, Connections: 2})
	g.AddEdge("a.com", "cnn.com")
	return g
}

func TestNodesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NodesCSV(&buf, exportFixture()); err != nil {
		t.Fatalf("NodesCSV() error = %v", err)
	}

	want := "domain,type,hop,connections\n" +
		"a.com,discovered,1,2\n" +
		"cnn.com,seed,0,0\n"
	if got := buf.String(); got != want {
		t.Errorf("NodesCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestEdgesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := EdgesCSV(&buf, exportFixture()); err != nil {
		t.Fatalf("EdgesCSV() error = %v", err)
	}

	want := "source,target\na.com,cnn.com\n"
	if got := buf.String(); got != want {
		t.Errorf("EdgesCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestEmptyGraphExportsHeadersOnly(t *testing.T) {
	var nodes, edges bytes.Buffer
	g := model.NewGraph()
	if err := NodesCSV(&nodes, g); err != nil {
		t.Fatalf("NodesCSV() error = %v", err)
	}
	if err := EdgesCSV(&edges, g); err != nil {
		t.Fatalf("EdgesCSV() error = %v", err)
	}
	if nodes.String() != "domain,type,hop,connections\n" {
		t.Errorf("nodes = %q", nodes.String())
	}
	if edges.String() != "source,target\n" {
		t.Errorf("edges = %q", edges.String())
	}
}

func TestGEXF(t *testing.T) {
	var buf bytes.Buffer
	if err := GEXF(&buf, exportFixture()); err != nil {
		t.Fatalf("GEXF() error = %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, xml.Header) {
		t.Error("missing XML declaration")
	}

	// Round-trip through the document model to check structure.
	var doc gexfDoc
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if doc.Graph.DefaultEdgeTyp != "directed" {
		t.Errorf("defaultedgetype = %s, want directed", doc.Graph.DefaultEdgeTyp)
	}
	if len(doc.Graph.Nodes) != 2 || len(doc.Graph.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges; want 2, 1", len(doc.Graph.Nodes), len(doc.Graph.Edges))
	}

	// Nodes are sorted by id, so a.com comes first.
	node := doc.Graph.Nodes[0]
	if node.ID != "a.com" || node.Label != "a.com" {
		t.Errorf("node = %+v, want a.com", node)
	}
	wantAttrs := []gexfAttrValue{
		{For: "0", Value: "discovered"},
		{For: "1", Value: "1"},
		{For: "2", Value: "2"},
	}
	if len(node.AttValues) != len(wantAttrs) {
		t.Fatalf("attvalues = %v", node.AttValues)
	}
	for i, want := range wantAttrs {
		if node.AttValues[i] != want {
			t.Errorf("attvalue[%d] = %v, want %v", i, node.AttValues[i], want)
		}
	}

	edge := doc.Graph.Edges[0]
	if edge.Source != "a.com" || edge.Target != "cnn.com" {
		t.Errorf("edge = %+v", edge)
	}
}
