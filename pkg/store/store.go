// Package store defines the read-only contract the discovery layer
// uses to query the web-link graph, plus an in-memory implementation.
//
// Production datasets key vertices by reversed domain notation
// ("com.example"); implementations convert at this boundary so callers
// only ever see normal notation.
package store

import (
	"errors"
	"strings"
)

// ErrNotLoaded is returned by queries against a store whose backing
// dataset has not been opened or has been closed.
var ErrNotLoaded = errors.New("graph store not loaded")

// GraphStore maps domains to opaque vertex ids and exposes the
// adjacency of each vertex. Neighbor lists are fetched whole per
// vertex: per-call overhead dominates at scale, so implementations
// must not require one round trip per neighbor.
type GraphStore interface {
	// DomainToID resolves a domain to its vertex id. The second
	// return is false when the domain is not in the graph.
	DomainToID(domain string) (int64, bool, error)

	// IDToDomain resolves a vertex id back to its domain. The second
	// return is false when the id is unknown.
	IDToDomain(id int64) (string, bool, error)

	// Predecessors returns the ids of all vertices linking TO id.
	// The list may contain duplicates when the underlying crawl
	// recorded multiple links between the same pair.
	Predecessors(id int64) ([]int64, error)

	// Successors returns the ids of all vertices id links TO.
	Successors(id int64) ([]int64, error)
}

// SharedNeighborFinder is an optional fast path: the store filters
// neighbors shared by at least minShared (and at most maxShared) of
// the given vertices server-side, without per-neighbor counts.
type SharedNeighborFinder interface {
	SharedPredecessors(ids []int64, minShared, maxShared int) ([]int64, error)
	SharedSuccessors(ids []int64, minShared, maxShared int) ([]int64, error)
}

// DomainScanner is implemented by stores whose vertex dictionary can
// only be read sequentially. The scan callback returns false to stop
// early; callers validating a fixed set of domains must stop as soon
// as every member has been found.
type DomainScanner interface {
	ScanDomains(fn func(domain string, id int64) bool) error
}

// ReverseDomain converts between normal and CommonCrawl reversed
// notation ("example.com" <-> "com.example"). The transform is its
// own inverse.
func ReverseDomain(domain string) string {
	parts := strings.Split(domain, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
