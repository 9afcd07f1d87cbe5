package sqlite

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/netneighbors/netneighbors/pkg/store"
)

// writeDataset writes a small vertices/links dataset:
//
//	0 cnn.com    <- linked from a.com (twice) and b.com
//	1 a.com
//	2 b.com
//	3 bbc.com    <- linked from a.com
func writeDataset(t *testing.T, dir string, compress bool) (string, string) {
	t.Helper()

	vertices := "0\tcom.cnn\n1\tcom.a\n2\tcom.b\n3\tcom.bbc\n"
	links := "1\t0\n1\t0\n2\t0\n1\t3\n"

	ext := ""
	if compress {
		ext = ".gz"
	}
	vPath := filepath.Join(dir, "vertices.txt"+ext)
	lPath := filepath.Join(dir, "links.txt"+ext)

	write := func(path, content string) {
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("creating %s: %v", path, err)
		}
		defer f.Close()
		if compress {
			gz := gzip.NewWriter(f)
			if _, err := gz.Write([]byte(content)); err != nil {
				t.Fatalf("writing %s: %v", path, err)
			}
			if err := gz.Close(); err != nil {
				t.Fatalf("closing gzip %s: %v", path, err)
			}
		} else {
			if _, err := f.WriteString(content); err != nil {
				t.Fatalf("writing %s: %v", path, err)
			}
		}
	}
	write(vPath, vertices)
	write(lPath, links)
	return vPath, lPath
}

func openImported(t *testing.T, compress bool) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "graph.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	vPath, lPath := writeDataset(t, dir, compress)
	stats, err := s.ImportDataset(vPath, lPath)
	if err != nil {
		t.Fatalf("ImportDataset() error = %v", err)
	}
	if stats.Vertices != 4 || stats.Links != 4 {
		t.Fatalf("ImportDataset() stats = %+v, want 4 vertices, 4 links", stats)
	}
	return s
}

func TestDomainLookupRoundTrip(t *testing.T) {
	s := openImported(t, false)

	id, ok, err := s.DomainToID("cnn.com")
	if err != nil || !ok {
		t.Fatalf("DomainToID(cnn.com) = %d, %t, %v", id, ok, err)
	}
	if id != 0 {
		t.Errorf("DomainToID(cnn.com) = %d, want 0", id)
	}

	domain, ok, err := s.IDToDomain(id)
	if err != nil || !ok {
		t.Fatalf("IDToDomain(%d) error = %v, ok = %t", id, err, ok)
	}
	if domain != "cnn.com" {
		t.Errorf("IDToDomain(%d) = %q, want cnn.com (normal notation)", id, domain)
	}

	if _, ok, _ := s.DomainToID("missing.example"); ok {
		t.Error("DomainToID(missing.example) reported found")
	}
}

func TestPredecessorsKeepDuplicateLinks(t *testing.T) {
	s := openImported(t, false)

	preds, err := s.Predecessors(0)
	if err != nil {
		t.Fatalf("Predecessors(0) error = %v", err)
	}
	// a.com appears twice: duplicate crawl records are preserved here
	// and deduplicated by the discovery engine, not the store.
	if len(preds) != 3 {
		t.Errorf("Predecessors(0) = %v, want 3 entries", preds)
	}
}

func TestSuccessors(t *testing.T) {
	s := openImported(t, false)

	succs, err := s.Successors(1)
	if err != nil {
		t.Fatalf("Successors(1) error = %v", err)
	}
	if len(succs) != 3 {
		t.Errorf("Successors(1) = %v, want 3 entries", succs)
	}
}

func TestSharedPredecessors(t *testing.T) {
	s := openImported(t, false)

	// cnn.com (0) and bbc.com (3) share predecessor a.com (1).
	shared, err := s.SharedPredecessors([]int64{0, 3}, 2, 2)
	if err != nil {
		t.Fatalf("SharedPredecessors() error = %v", err)
	}
	if len(shared) != 1 || shared[0] != 1 {
		t.Errorf("SharedPredecessors() = %v, want [1]", shared)
	}

	// With minShared=1 both a.com and b.com qualify.
	shared, err = s.SharedPredecessors([]int64{0, 3}, 1, 2)
	if err != nil {
		t.Fatalf("SharedPredecessors() error = %v", err)
	}
	if len(shared) != 2 {
		t.Errorf("SharedPredecessors(min=1) = %v, want 2 entries", shared)
	}
}

func TestGzipImport(t *testing.T) {
	s := openImported(t, true)

	if _, ok, err := s.DomainToID("bbc.com"); err != nil || !ok {
		t.Errorf("DomainToID(bbc.com) after gzip import: ok = %t, err = %v", ok, err)
	}
}

func TestClosedStoreFailsLoudly(t *testing.T) {
	s := openImported(t, false)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, _, err := s.DomainToID("cnn.com"); !errors.Is(err, store.ErrNotLoaded) {
		t.Errorf("DomainToID after Close: err = %v, want ErrNotLoaded", err)
	}
	if _, err := s.Predecessors(0); !errors.Is(err, store.ErrNotLoaded) {
		t.Errorf("Predecessors after Close: err = %v, want ErrNotLoaded", err)
	}
}
