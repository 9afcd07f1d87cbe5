package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/netneighbors/netneighbors/pkg/model"
	"github.com/netneighbors/netneighbors/pkg/store"
)

// Fixture: group A (casinos) is backlinked by x and y, group B
// (misinfo) by y and z. Only y backlinks both, so y is the single
// shared connector. casino3.com is linked only by x, so it must be
// pruned from the output.
func intersectFixture() *store.Memory {
	m := store.NewMemory()
	m.AddLink("x.com", "casino1.com")
	m.AddLink("x.com", "casino3.com")
	m.AddLink("y.com", "casino1.com")
	m.AddLink("y.com", "casino2.com")
	m.AddLink("y.com", "misinfo1.com")
	m.AddLink("z.com", "misinfo1.com")
	return m
}

func TestIntersectBacklinkers(t *testing.T) {
	e := NewEngine(intersectFixture(), 1)

	graph, err := e.IntersectBacklinkers(context.Background(),
		Group{Kind: model.KindCasino, Seeds: []string{"casino1.com", "casino2.com", "casino3.com"}, MinConnections: 1},
		Group{Kind: model.KindMisinfo, Seeds: []string{"misinfo1.com"}, MinConnections: 1},
		model.KindLinkSpam,
	)
	if err != nil {
		t.Fatalf("IntersectBacklinkers() error = %v", err)
	}

	connector, ok := graph.Nodes["y.com"]
	if !ok {
		t.Fatal("shared connector y.com missing from graph")
	}
	if connector.Kind != model.KindLinkSpam {
		t.Errorf("connector kind = %s, want %s", connector.Kind, model.KindLinkSpam)
	}
	if connector.GroupConnections[model.KindCasino] != 2 {
		t.Errorf("casino connections = %d, want 2", connector.GroupConnections[model.KindCasino])
	}
	if connector.GroupConnections[model.KindMisinfo] != 1 {
		t.Errorf("misinfo connections = %d, want 1", connector.GroupConnections[model.KindMisinfo])
	}
	if connector.Connections != 3 {
		t.Errorf("total connections = %d, want 3", connector.Connections)
	}

	// x and z backlink only one group each; they are not connectors.
	if _, ok := graph.Nodes["x.com"]; ok {
		t.Error("x.com is not shared but appears in graph")
	}
	if _, ok := graph.Nodes["z.com"]; ok {
		t.Error("z.com is not shared but appears in graph")
	}

	// casino3.com has no edge from any shared connector: pruned.
	if _, ok := graph.Nodes["casino3.com"]; ok {
		t.Error("casino3.com has no shared backlinker but appears in graph")
	}
	for _, id := range []string{"casino1.com", "casino2.com", "misinfo1.com"} {
		if _, ok := graph.Nodes[id]; !ok {
			t.Errorf("seed %s missing from graph", id)
		}
	}
	if got := graph.Nodes["casino1.com"].Kind; got != model.KindCasino {
		t.Errorf("casino1.com kind = %s, want %s", got, model.KindCasino)
	}

	wantEdges := []model.Edge{
		{Source: "y.com", Target: "casino1.com"},
		{Source: "y.com", Target: "casino2.com"},
		{Source: "y.com", Target: "misinfo1.com"},
	}
	gotEdges := graph.SortedEdges()
	if len(gotEdges) != len(wantEdges) {
		t.Fatalf("got %d edges %v, want %d", len(gotEdges), gotEdges, len(wantEdges))
	}
	for i, want := range wantEdges {
		if gotEdges[i] != want {
			t.Errorf("edge[%d] = %v, want %v", i, gotEdges[i], want)
		}
	}
}

func TestIntersectThresholds(t *testing.T) {
	e := NewEngine(intersectFixture(), 1)

	// Requiring two casino backlinks keeps y (casino1+casino2) but a
	// misinfo threshold of two eliminates everything.
	graph, err := e.IntersectBacklinkers(context.Background(),
		Group{Kind: model.KindCasino, Seeds: []string{"casino1.com", "casino2.com"}, MinConnections: 2},
		Group{Kind: model.KindMisinfo, Seeds: []string{"misinfo1.com"}, MinConnections: 2},
		model.KindLinkSpam,
	)
	if err != nil {
		t.Fatalf("IntersectBacklinkers() error = %v", err)
	}
	if len(graph.Nodes) != 0 || len(graph.Edges) != 0 {
		t.Errorf("graph = %d nodes, %d edges; want empty", len(graph.Nodes), len(graph.Edges))
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	seedsPath := filepath.Join(dir, "misinfo.txt")
	if err := os.WriteFile(seedsPath, []byte("\ufeffmisinfo1.com\n\nmisinfo2.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := `
name: link-spam
group_a:
  kind: casino
  seeds: [casino1.com, casino2.com]
  min_connections: 10
group_b:
  kind: misinfo
  seeds_file: misinfo.txt
  min_connections: 5
`
	path := filepath.Join(dir, "link-spam.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	a, b, sharedKind, err := m.Groups()
	if err != nil {
		t.Fatalf("Groups() error = %v", err)
	}
	if sharedKind != model.KindLinkSpam {
		t.Errorf("sharedKind = %s, want default %s", sharedKind, model.KindLinkSpam)
	}
	if a.Kind != model.KindCasino || a.MinConnections != 10 || len(a.Seeds) != 2 {
		t.Errorf("group A = %+v", a)
	}
	if b.Kind != model.KindMisinfo || b.MinConnections != 5 {
		t.Errorf("group B = %+v", b)
	}
	// BOM stripped, blank line skipped.
	if len(b.Seeds) != 2 || b.Seeds[0] != "misinfo1.com" {
		t.Errorf("group B seeds = %v", b.Seeds)
	}
}

func TestLoadManifestRejectsIncompleteGroups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("name: bad\ngroup_a:\n  kind: casino\n  min_connections: 1\ngroup_b:\n  kind: misinfo\n  seeds: [a.com]\n  min_connections: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Error("LoadManifest() accepted a group without seeds")
	}
}
