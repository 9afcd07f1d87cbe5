package session

import (
	"context"
	"errors"
	"testing"

	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/model"
)

// stubEngine returns a canned discovery result and records the seeds
// it was asked about.
type stubEngine struct {
	result   *discovery.Result
	err      error
	gotSeeds []string
}

func (s *stubEngine) Discover(_ context.Context, seeds []string, _ int, _ model.Direction) (*discovery.Result, error) {
	s.gotSeeds = seeds
	return s.result, s.err
}

func resultWith(entries []discovery.Entry, edges []model.Edge) *discovery.Result {
	return &discovery.Result{Entries: entries, Edges: edges, ResolvedSeeds: 1}
}

func TestAddSeedsIsIdempotent(t *testing.T) {
	s := New(&stubEngine{}, 0)

	if added := s.AddSeeds([]string{"cnn.com", "bbc.com"}); added != 2 {
		t.Errorf("AddSeeds() = %d, want 2", added)
	}
	if added := s.AddSeeds([]string{"cnn.com", "nytimes.com"}); added != 1 {
		t.Errorf("AddSeeds() second call = %d, want 1", added)
	}

	g := s.Snapshot()
	node, ok := g.Nodes["cnn.com"]
	if !ok {
		t.Fatal("cnn.com missing after AddSeeds")
	}
	if node.Kind != model.KindSeed || node.Hop != 0 {
		t.Errorf("seed node = %+v, want kind %s hop 0", node, model.KindSeed)
	}
}

func TestExpandAppliesSmallMerge(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com", Connections: 2, Percentage: 100}},
		[]model.Edge{{Source: "a.com", Target: "cnn.com"}},
	)}
	s := New(engine, 10)
	s.AddSeeds([]string{"cnn.com"})

	outcome, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if !outcome.Applied {
		t.Error("small merge was staged, want applied")
	}
	if outcome.NewNodes != 1 || outcome.NewEdges != 1 || outcome.Hop != 1 {
		t.Errorf("outcome = %+v, want 1 node, 1 edge, hop 1", outcome)
	}
	if s.Hop() != 1 {
		t.Errorf("Hop() = %d, want 1", s.Hop())
	}

	g := s.Snapshot()
	node := g.Nodes["a.com"]
	if node == nil {
		t.Fatal("discovered node a.com missing")
	}
	if node.Kind != model.KindDiscovered || node.Hop != 1 || node.Connections != 2 {
		t.Errorf("node = %+v, want discovered, hop 1, 2 connections", node)
	}
	if len(g.Edges) != 1 || g.Edges[0] != (model.Edge{Source: "a.com", Target: "cnn.com"}) {
		t.Errorf("edges = %v", g.Edges)
	}
}

func TestExpandKeepsExistingNodeAttributes(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{
			{Domain: "bbc.com", Connections: 5},
			{Domain: "a.com", Connections: 1},
		},
		nil,
	)}
	s := New(engine, 10)
	s.AddSeeds([]string{"cnn.com", "bbc.com"})

	outcome, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	// bbc.com already exists as a seed; only a.com is new.
	if outcome.NewNodes != 1 {
		t.Errorf("NewNodes = %d, want 1", outcome.NewNodes)
	}
	node := s.Snapshot().Nodes["bbc.com"]
	if node.Kind != model.KindSeed || node.Hop != 0 {
		t.Errorf("existing node overwritten: %+v", node)
	}
}

func TestExpandRequiresKnownSelection(t *testing.T) {
	s := New(&stubEngine{result: resultWith(nil, nil)}, 10)
	if _, err := s.Expand(context.Background(), []string{"unknown.com"}, 1, model.Backlinks); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Expand() error = %v, want ErrNoSelection", err)
	}
}

func TestExpandStagesLargeMerge(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{
			{Domain: "a.com", Connections: 1},
			{Domain: "b.com", Connections: 1},
			{Domain: "c.com", Connections: 1},
		},
		[]model.Edge{
			{Source: "a.com", Target: "cnn.com"},
			{Source: "b.com", Target: "cnn.com"},
			{Source: "c.com", Target: "cnn.com"},
		},
	)}
	s := New(engine, 2)
	s.AddSeeds([]string{"cnn.com"})

	outcome, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if outcome.Applied {
		t.Fatal("3 new nodes with threshold 2 must stage, not apply")
	}
	if outcome.NewNodes != 3 {
		t.Errorf("NewNodes = %d, want 3", outcome.NewNodes)
	}
	if s.State() != AwaitingConfirmation {
		t.Errorf("State() = %s, want %s", s.State(), AwaitingConfirmation)
	}
	// The graph stays untouched while staged.
	if got := s.NodeCount(); got != 1 {
		t.Errorf("NodeCount() = %d during staging, want 1", got)
	}
	if s.Hop() != 0 {
		t.Errorf("Hop() = %d during staging, want 0", s.Hop())
	}

	// A second expansion is rejected until the merge is resolved.
	if _, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks); !errors.Is(err, ErrAwaitingConfirmation) {
		t.Errorf("Expand() while staged error = %v, want ErrAwaitingConfirmation", err)
	}

	confirmed, err := s.ConfirmPendingMerge()
	if err != nil {
		t.Fatalf("ConfirmPendingMerge() error = %v", err)
	}
	if confirmed.NewNodes != 3 || confirmed.NewEdges != 3 || confirmed.Hop != 1 {
		t.Errorf("confirm outcome = %+v, want 3 nodes, 3 edges, hop 1", confirmed)
	}
	if s.State() != Idle || s.Hop() != 1 || s.NodeCount() != 4 {
		t.Errorf("after confirm: state %s, hop %d, nodes %d", s.State(), s.Hop(), s.NodeCount())
	}
}

func TestExpandAppliesExactlyThresholdNewNodes(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com"}, {Domain: "b.com"}},
		nil,
	)}
	s := New(engine, 2)
	s.AddSeeds([]string{"cnn.com"})

	outcome, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	// Staging only kicks in above the threshold: exactly 2 new nodes
	// with threshold 2 commits immediately.
	if !outcome.Applied {
		t.Fatal("merge of exactly threshold new nodes was staged, want applied")
	}
	if s.State() != Idle || s.Hop() != 1 || s.NodeCount() != 3 {
		t.Errorf("state %s, hop %d, nodes %d; want idle, 1, 3", s.State(), s.Hop(), s.NodeCount())
	}
}

func TestCancelPendingMergeDiscards(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com"}, {Domain: "b.com"}},
		nil,
	)}
	s := New(engine, 1)
	s.AddSeeds([]string{"cnn.com"})

	if _, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if err := s.CancelPendingMerge(); err != nil {
		t.Fatalf("CancelPendingMerge() error = %v", err)
	}
	if s.State() != Idle || s.Hop() != 0 || s.NodeCount() != 1 {
		t.Errorf("after cancel: state %s, hop %d, nodes %d; want idle, 0, 1", s.State(), s.Hop(), s.NodeCount())
	}
	if err := s.CancelPendingMerge(); !errors.Is(err, ErrNoPendingMerge) {
		t.Errorf("second cancel error = %v, want ErrNoPendingMerge", err)
	}
	if _, err := s.ConfirmPendingMerge(); !errors.Is(err, ErrNoPendingMerge) {
		t.Errorf("confirm without staging error = %v, want ErrNoPendingMerge", err)
	}
}

func TestConfirmDedupsAgainstChangedGraph(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com"}, {Domain: "b.com"}},
		[]model.Edge{
			{Source: "a.com", Target: "cnn.com"},
			{Source: "b.com", Target: "bbc.com"},
		},
	)}
	s := New(engine, 1)
	s.AddSeeds([]string{"cnn.com", "bbc.com"})

	if _, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	// The graph changes while the merge is staged: a.com arrives as a
	// seed and bbc.com is deleted.
	s.AddSeeds([]string{"a.com"})
	s.DeleteNodes([]string{"bbc.com"})

	outcome, err := s.ConfirmPendingMerge()
	if err != nil {
		t.Fatalf("ConfirmPendingMerge() error = %v", err)
	}
	// a.com deduped, b.com added; the bbc.com edge endpoint is gone.
	if outcome.NewNodes != 1 {
		t.Errorf("NewNodes = %d, want 1", outcome.NewNodes)
	}
	if outcome.NewEdges != 1 {
		t.Errorf("NewEdges = %d, want 1", outcome.NewEdges)
	}
	if node := s.Snapshot().Nodes["a.com"]; node.Kind != model.KindSeed {
		t.Errorf("a.com kind = %s, seed must win the dedup", node.Kind)
	}
}

func TestDeleteNodesCascadesEdges(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com"}, {Domain: "b.com"}},
		[]model.Edge{
			{Source: "a.com", Target: "cnn.com"},
			{Source: "a.com", Target: "bbc.com"},
			{Source: "b.com", Target: "cnn.com"},
		},
	)}
	s := New(engine, 10)
	s.AddSeeds([]string{"cnn.com", "bbc.com"})
	if _, err := s.Expand(context.Background(), []string{"cnn.com", "bbc.com"}, 1, model.Backlinks); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	removedNodes, removedEdges := s.DeleteNodes([]string{"a.com", "ghost.example"})
	if removedNodes != 1 {
		t.Errorf("removedNodes = %d, want 1 (unknown ids ignored)", removedNodes)
	}
	if removedEdges != 2 {
		t.Errorf("removedEdges = %d, want 2", removedEdges)
	}

	g := s.Snapshot()
	if _, ok := g.Nodes["a.com"]; ok {
		t.Error("a.com still present after delete")
	}
	if len(g.Edges) != 1 || g.Edges[0] != (model.Edge{Source: "b.com", Target: "cnn.com"}) {
		t.Errorf("edges = %v, want only b.com->cnn.com", g.Edges)
	}
}

func TestClearResetsEverything(t *testing.T) {
	engine := &stubEngine{result: resultWith(
		[]discovery.Entry{{Domain: "a.com"}, {Domain: "b.com"}},
		nil,
	)}
	s := New(engine, 1)
	s.AddSeeds([]string{"cnn.com"})
	if _, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	s.Clear()

	if s.NodeCount() != 0 || s.EdgeCount() != 0 {
		t.Errorf("after clear: %d nodes, %d edges", s.NodeCount(), s.EdgeCount())
	}
	if s.State() != Idle || s.Hop() != 0 {
		t.Errorf("after clear: state %s, hop %d", s.State(), s.Hop())
	}
	// The session is usable again.
	if added := s.AddSeeds([]string{"cnn.com"}); added != 1 {
		t.Errorf("AddSeeds() after clear = %d, want 1", added)
	}
}

func TestExpandPropagatesEngineErrors(t *testing.T) {
	wantErr := errors.New("store gone")
	s := New(&stubEngine{err: wantErr}, 10)
	s.AddSeeds([]string{"cnn.com"})

	if _, err := s.Expand(context.Background(), []string{"cnn.com"}, 1, model.Backlinks); !errors.Is(err, wantErr) {
		t.Errorf("Expand() error = %v, want wrapped %v", err, wantErr)
	}
	if s.Hop() != 0 {
		t.Errorf("Hop() = %d after failed expand, want 0", s.Hop())
	}
}

func TestExpandFiltersSelectionToKnownNodes(t *testing.T) {
	engine := &stubEngine{result: resultWith(nil, nil)}
	s := New(engine, 10)
	s.AddSeeds([]string{"cnn.com"})

	if _, err := s.Expand(context.Background(), []string{"cnn.com", "ghost.example"}, 1, model.Backlinks); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(engine.gotSeeds) != 1 || engine.gotSeeds[0] != "cnn.com" {
		t.Errorf("engine seeds = %v, want [cnn.com]", engine.gotSeeds)
	}
}
