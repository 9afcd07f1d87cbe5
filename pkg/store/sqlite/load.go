package sqlite

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/netneighbors/netneighbors/pkg/store"
)

// ImportStats reports what a dataset import wrote.
type ImportStats struct {
	Vertices int
	Links    int
}

// ImportDataset ingests a CommonCrawl domain-graph dump: a vertices
// file with "id<TAB>reversed-domain" lines and a link file with
// "srcID<TAB>dstID" lines. Files ending in .gz are decompressed on the
// fly. The import runs in a single transaction.
func (s *Store) ImportDataset(verticesPath, linksPath string) (*ImportStats, error) {
	if s.db == nil {
		return nil, store.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	stats := &ImportStats{}

	err = readLines(verticesPath, func(line string) error {
		id, rest, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("malformed vertex line %q", line)
		}
		// Further columns (vertex degree etc.) are ignored.
		domain, _, _ := strings.Cut(rest, "\t")
		vid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed vertex id %q: %w", id, err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO vertices (id, domain) VALUES (?, ?)`,
			vid, domain,
		); err != nil {
			return err
		}
		stats.Vertices++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing vertices from %s: %w", verticesPath, err)
	}

	err = readLines(linksPath, func(line string) error {
		src, dst, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("malformed link line %q", line)
		}
		srcID, err := strconv.ParseInt(src, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed link source %q: %w", src, err)
		}
		dstID, err := strconv.ParseInt(dst, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed link target %q: %w", dst, err)
		}
		if _, err := tx.Exec(`INSERT INTO links (src, dst) VALUES (?, ?)`, srcID, dstID); err != nil {
			return err
		}
		stats.Links++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing links from %s: %w", linksPath, err)
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('vertices', ?), ('links', ?)`,
		stats.Vertices, stats.Links,
	); err != nil {
		return nil, fmt.Errorf("recording import stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return stats, nil
}

// readLines streams path line by line, transparently decompressing
// .gz files. Blank lines are skipped.
func readLines(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
