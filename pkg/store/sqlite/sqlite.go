// Package sqlite implements store.GraphStore on a SQLite database,
// suitable for domain graphs that fit on local disk. Vertices are
// stored in CommonCrawl reversed notation; the conversion happens here
// so callers only see normal notation.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/netneighbors/netneighbors/pkg/store"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed graph store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vertices (
		id INTEGER PRIMARY KEY,
		domain TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS links (
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_src ON links(src);
	CREATE INDEX IF NOT EXISTS idx_links_dst ON links(dst);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database. Queries after Close fail with
// store.ErrNotLoaded.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) DomainToID(domain string) (int64, bool, error) {
	if s.db == nil {
		return 0, false, store.ErrNotLoaded
	}
	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM vertices WHERE domain = ?`,
		store.ReverseDomain(domain),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up domain %q: %w", domain, err)
	}
	return id, true, nil
}

func (s *Store) IDToDomain(id int64) (string, bool, error) {
	if s.db == nil {
		return "", false, store.ErrNotLoaded
	}
	var reversed string
	err := s.db.QueryRow(`SELECT domain FROM vertices WHERE id = ?`, id).Scan(&reversed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up vertex %d: %w", id, err)
	}
	return store.ReverseDomain(reversed), true, nil
}

func (s *Store) Predecessors(id int64) ([]int64, error) {
	return s.neighbors(`SELECT src FROM links WHERE dst = ?`, id)
}

func (s *Store) Successors(id int64) ([]int64, error) {
	return s.neighbors(`SELECT dst FROM links WHERE src = ?`, id)
}

// neighbors fetches a full adjacency list in one query; the discovery
// engine depends on that batching.
func (s *Store) neighbors(query string, id int64) ([]int64, error) {
	if s.db == nil {
		return nil, store.ErrNotLoaded
	}
	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("querying neighbors of %d: %w", id, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning neighbor: %w", err)
		}
		ids = append(ids, n)
	}
	return ids, rows.Err()
}

// SharedPredecessors returns vertices linking to at least minShared
// and at most maxShared of the given vertices, filtered in SQL.
func (s *Store) SharedPredecessors(ids []int64, minShared, maxShared int) ([]int64, error) {
	return s.shared("src", "dst", ids, minShared, maxShared)
}

// SharedSuccessors returns vertices linked from at least minShared and
// at most maxShared of the given vertices.
func (s *Store) SharedSuccessors(ids []int64, minShared, maxShared int) ([]int64, error) {
	return s.shared("dst", "src", ids, minShared, maxShared)
}

func (s *Store) shared(selectCol, matchCol string, ids []int64, minShared, maxShared int) ([]int64, error) {
	if s.db == nil {
		return nil, store.ErrNotLoaded
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(
		`SELECT %s FROM links WHERE %s IN (%s)
		 GROUP BY %s
		 HAVING COUNT(DISTINCT %s) BETWEEN ? AND ?
		 ORDER BY %s`,
		selectCol, matchCol, placeholders, selectCol, matchCol, selectCol,
	)

	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, minShared, maxShared)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying shared neighbors: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning shared neighbor: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
