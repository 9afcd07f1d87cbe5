package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/netneighbors/netneighbors/pkg/model"
)

// GEXF 1.2draft document model, shaped for Gephi compatibility. Node
// attributes type, hop and connections carry the discovery metadata.
type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfGraph struct {
	Mode           string         `xml:"mode,attr"`
	DefaultEdgeTyp string         `xml:"defaultedgetype,attr"`
	Attributes     gexfAttributes `xml:"attributes"`
	Nodes          []gexfNode     `xml:"nodes>node"`
	Edges          []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string          `xml:"class,attr"`
	Attrs []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID        string          `xml:"id,attr"`
	Label     string          `xml:"label,attr"`
	AttValues []gexfAttrValue `xml:"attvalues>attvalue"`
}

type gexfAttrValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfEdge struct {
	ID     int    `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

// GEXF writes the graph as a directed GEXF 1.2 document. Node and edge
// order is deterministic so exports diff cleanly.
func GEXF(w io.Writer, g *model.Graph) error {
	doc := gexfDoc{
		XMLNS:   "http://www.gexf.net/1.2draft",
		Version: "1.2",
		Graph: gexfGraph{
			Mode:           "static",
			DefaultEdgeTyp: "directed",
			Attributes: gexfAttributes{
				Class: "node",
				Attrs: []gexfAttribute{
					{ID: "0", Title: "type", Type: "string"},
					{ID: "1", Title: "hop", Type: "integer"},
					{ID: "2", Title: "connections", Type: "integer"},
				},
			},
		},
	}

	for _, node := range g.SortedNodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{
			ID:    node.ID,
			Label: node.ID,
			AttValues: []gexfAttrValue{
				{For: "0", Value: string(node.Kind)},
				{For: "1", Value: strconv.Itoa(node.Hop)},
				{For: "2", Value: strconv.Itoa(node.Connections)},
			},
		})
	}
	for i, edge := range g.SortedEdges() {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     i,
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing gexf header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}
	return enc.Close()
}
