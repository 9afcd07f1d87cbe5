// Package session holds the user-visible working graph: seeds, merged
// discovery results, hop tracking, and the two-phase confirm/commit
// gate for large merges.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/logging"
	"github.com/netneighbors/netneighbors/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// DefaultMergeThreshold is the number of new nodes above which an
// expansion is staged for confirmation instead of applied.
const DefaultMergeThreshold = 150

var (
	// ErrAwaitingConfirmation rejects expansions while a staged merge
	// is outstanding; at most one may exist at a time.
	ErrAwaitingConfirmation = errors.New("a staged merge is awaiting confirmation")
	// ErrNoPendingMerge rejects confirm/cancel with nothing staged.
	ErrNoPendingMerge = errors.New("no staged merge to act on")
	// ErrNoSelection rejects an expansion whose selection contains no
	// node present in the session.
	ErrNoSelection = errors.New("no selected node exists in the session")
)

// State is the session's confirmation state.
type State string

const (
	Idle                 State = "idle"
	AwaitingConfirmation State = "awaiting_confirmation"
)

// Discoverer is the slice of the discovery engine the session needs.
type Discoverer interface {
	Discover(ctx context.Context, seeds []string, minConnections int, direction model.Direction) (*discovery.Result, error)
}

// Session is the mutable exploration graph. All operations are safe
// for concurrent use, though the intended model is one user driving
// one session synchronously.
type Session struct {
	mu        sync.Mutex
	engine    Discoverer
	threshold int

	graph  *simple.DirectedGraph
	nodes  map[string]*model.Node
	ids    map[string]int64
	labels map[int64]string
	nextID int64

	hop     int
	pending *pendingMerge
}

// pendingMerge is the single-slot staging buffer for a large merge.
type pendingMerge struct {
	nodes []*model.Node
	edges []model.Edge
}

// New creates an empty session. threshold <= 0 selects the default.
func New(engine Discoverer, threshold int) *Session {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	return &Session{
		engine:    engine,
		threshold: threshold,
		graph:     simple.NewDirectedGraph(),
		nodes:     make(map[string]*model.Node),
		ids:       make(map[string]int64),
		labels:    make(map[int64]string),
	}
}

// State reports whether a staged merge is outstanding.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return AwaitingConfirmation
	}
	return Idle
}

// Hop returns the current discovery depth.
func (s *Session) Hop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hop
}

// AddSeeds inserts the given domains as hop-0 seed nodes and returns
// how many were actually added. Re-adding an existing id is a no-op.
func (s *Session) AddSeeds(domains []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, domain := range domains {
		if _, exists := s.nodes[domain]; exists {
			continue
		}
		s.insertNode(&model.Node{ID: domain, Kind: model.KindSeed, Hop: 0, Connections: 0})
		added++
	}
	s.assertInvariants()
	return added
}

// ExpandOutcome describes what an expansion did.
type ExpandOutcome struct {
	// Applied is false when the merge was staged for confirmation.
	Applied bool `json:"applied"`
	// NewNodes counts nodes not already present (applied or staged).
	NewNodes int `json:"newNodes"`
	NewEdges int `json:"newEdges"`
	// Hop is the depth assigned to the new nodes.
	Hop int `json:"hop"`
	// Result is the underlying discovery result, for user messaging.
	Result *discovery.Result `json:"result"`
}

// Expand discovers neighbors of the selected nodes and merges them in.
// Nodes already present keep their attributes; only genuinely new
// nodes count against the large-merge threshold. A result with more
// new nodes than the threshold is staged, leaving the graph untouched
// until ConfirmPendingMerge or CancelPendingMerge.
func (s *Session) Expand(ctx context.Context, selected []string, minConnections int, direction model.Direction) (*ExpandOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, ErrAwaitingConfirmation
	}

	seeds := make([]string, 0, len(selected))
	for _, id := range selected {
		if _, exists := s.nodes[id]; exists {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return nil, ErrNoSelection
	}

	result, err := s.engine.Discover(ctx, seeds, minConnections, direction)
	if err != nil {
		return nil, fmt.Errorf("expanding session: %w", err)
	}

	hop := s.hop + 1
	var newNodes []*model.Node
	for _, entry := range result.Entries {
		if _, exists := s.nodes[entry.Domain]; exists {
			continue
		}
		newNodes = append(newNodes, &model.Node{
			ID:          entry.Domain,
			Kind:        model.KindDiscovered,
			Hop:         hop,
			Connections: entry.Connections,
		})
	}

	if len(newNodes) > s.threshold {
		s.pending = &pendingMerge{nodes: newNodes, edges: result.Edges}
		logging.Info("staged large merge",
			"newNodes", len(newNodes), "threshold", s.threshold)
		return &ExpandOutcome{
			Applied:  false,
			NewNodes: len(newNodes),
			NewEdges: len(result.Edges),
			Hop:      hop,
			Result:   result,
		}, nil
	}

	addedNodes, addedEdges := s.applyMerge(newNodes, result.Edges)
	s.hop++
	logging.Debug("applied merge", "nodes", addedNodes, "edges", addedEdges, "hop", s.hop)
	return &ExpandOutcome{
		Applied:  true,
		NewNodes: addedNodes,
		NewEdges: addedEdges,
		Hop:      s.hop,
		Result:   result,
	}, nil
}

// ConfirmPendingMerge applies the staged merge. The graph may have
// changed since staging, so nodes are deduplicated again and edges
// whose endpoints have disappeared are dropped.
func (s *Session) ConfirmPendingMerge() (*ExpandOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, ErrNoPendingMerge
	}
	pending := s.pending
	s.pending = nil

	addedNodes, addedEdges := s.applyMerge(pending.nodes, pending.edges)
	s.hop++
	logging.Info("confirmed staged merge", "nodes", addedNodes, "edges", addedEdges, "hop", s.hop)
	return &ExpandOutcome{
		Applied:  true,
		NewNodes: addedNodes,
		NewEdges: addedEdges,
		Hop:      s.hop,
	}, nil
}

// CancelPendingMerge discards the staged merge without touching the
// graph or the hop counter.
func (s *Session) CancelPendingMerge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ErrNoPendingMerge
	}
	s.pending = nil
	logging.Info("cancelled staged merge")
	return nil
}

// DeleteNodes removes the given nodes and every edge touching them in
// one atomic update. Unknown ids are ignored. Returns the number of
// nodes and edges removed.
func (s *Session) DeleteNodes(ids []string) (removedNodes, removedEdges int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		gid, exists := s.ids[id]
		if !exists {
			continue
		}
		removedEdges += s.degree(gid)
		// RemoveNode also removes all incident edges.
		s.graph.RemoveNode(gid)
		delete(s.nodes, id)
		delete(s.ids, id)
		delete(s.labels, gid)
		removedNodes++
	}
	s.assertInvariants()
	return removedNodes, removedEdges
}

// Clear resets the session to empty, drops any staged merge, and
// rewinds the hop counter.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = simple.NewDirectedGraph()
	s.nodes = make(map[string]*model.Node)
	s.ids = make(map[string]int64)
	s.labels = make(map[int64]string)
	s.nextID = 0
	s.hop = 0
	s.pending = nil
}

// Snapshot returns a copy of the current graph for export or display.
// Node and edge order is deterministic.
func (s *Session) Snapshot() *model.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := model.NewGraph()
	for _, node := range s.nodes {
		copied := *node
		g.AddNode(&copied)
	}
	iter := s.graph.Edges()
	for iter.Next() {
		edge := iter.Edge()
		g.AddEdge(s.labels[edge.From().ID()], s.labels[edge.To().ID()])
	}
	g.Edges = g.SortedEdges()
	return g
}

// NodeCount returns the number of nodes in the session.
func (s *Session) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges in the session.
func (s *Session) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Edges().Len()
}

// applyMerge inserts nodes (skipping ids that appeared since the merge
// was built) and edges (skipping duplicates and edges with missing
// endpoints). Caller holds the lock.
func (s *Session) applyMerge(nodes []*model.Node, edges []model.Edge) (addedNodes, addedEdges int) {
	for _, node := range nodes {
		if _, exists := s.nodes[node.ID]; exists {
			continue
		}
		s.insertNode(node)
		addedNodes++
	}
	for _, edge := range edges {
		src, srcOK := s.ids[edge.Source]
		dst, dstOK := s.ids[edge.Target]
		if !srcOK || !dstOK || src == dst {
			continue
		}
		if s.graph.HasEdgeFromTo(src, dst) {
			continue
		}
		s.graph.SetEdge(s.graph.NewEdge(s.graph.Node(src), s.graph.Node(dst)))
		addedEdges++
	}
	s.assertInvariants()
	return addedNodes, addedEdges
}

// insertNode registers a node under a fresh graph id. Caller holds the
// lock and has checked the id is free.
func (s *Session) insertNode(node *model.Node) {
	id := s.nextID
	s.nextID++
	s.nodes[node.ID] = node
	s.ids[node.ID] = id
	s.labels[id] = node.ID
	s.graph.AddNode(simple.Node(id))
}

// degree counts edges incident to a graph id. Caller holds the lock.
func (s *Session) degree(gid int64) int {
	n := 0
	to := s.graph.To(gid)
	for to.Next() {
		n++
	}
	from := s.graph.From(gid)
	for from.Next() {
		n++
	}
	return n
}

// assertInvariants verifies the structural invariants after a
// mutation. A violation is an internal defect, so it fails loudly
// instead of repairing state. Caller holds the lock.
func (s *Session) assertInvariants() {
	if len(s.nodes) != len(s.ids) || len(s.ids) != len(s.labels) {
		panic(fmt.Sprintf("session invariant violated: node maps out of sync (%d/%d/%d)",
			len(s.nodes), len(s.ids), len(s.labels)))
	}
	iter := s.graph.Edges()
	for iter.Next() {
		edge := iter.Edge()
		for _, gid := range []int64{edge.From().ID(), edge.To().ID()} {
			label, ok := s.labels[gid]
			if !ok {
				panic(fmt.Sprintf("session invariant violated: edge references unknown vertex %d", gid))
			}
			if _, ok := s.nodes[label]; !ok {
				panic(fmt.Sprintf("session invariant violated: edge references missing node %q", label))
			}
		}
	}
}
