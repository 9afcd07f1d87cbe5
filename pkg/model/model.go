package model

import "fmt"

// Direction selects which side of a link the Discovery Engine examines.
type Direction string

const (
	// Backlinks examines predecessors: who links TO the seeds.
	Backlinks Direction = "backlinks"
	// Outlinks examines successors: who the seeds link TO.
	Outlinks Direction = "outlinks"
)

// ParseDirection converts a user-supplied string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Backlinks, Outlinks:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q (want %q or %q)", s, Backlinks, Outlinks)
}

// NodeKind classifies a node in a session or analysis graph.
type NodeKind string

const (
	KindSeed       NodeKind = "seed"
	KindDiscovered NodeKind = "discovered"

	// Intersection analysis kinds. The first two tag the seed groups,
	// the third tags the shared connectors found between them.
	KindCasino   NodeKind = "casino"
	KindMisinfo  NodeKind = "misinfo"
	KindLinkSpam NodeKind = "link_spam"
)

// Node represents a domain vertex in a session or analysis graph.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"type"`
	Hop         int      `json:"hop"`
	Connections int      `json:"connections"`

	// GroupConnections breaks Connections down by seed category for
	// intersection connectors. Empty for ordinary nodes.
	GroupConnections map[NodeKind]int `json:"groupConnections,omitempty"`
}

// Edge represents a directed link between two domains. The direction
// encodes which way the underlying web link runs: source links to target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
