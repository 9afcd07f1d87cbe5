// Package discovery aggregates, thresholds, and ranks neighbor
// domains of a seed set, and composes two such runs into a
// set-intersection analysis.
package discovery

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/netneighbors/netneighbors/pkg/model"
	"github.com/netneighbors/netneighbors/pkg/store"
)

// Entry is one ranked discovery hit.
type Entry struct {
	Domain      string  `json:"domain"`
	Connections int     `json:"connections"`
	Percentage  float64 `json:"percentage"`
}

// Result is the outcome of one discovery run. A result with no
// entries is a normal outcome; callers distinguish "nothing met the
// threshold" (ResolvedSeeds > 0) from "no seed resolved at all"
// (ResolvedSeeds == 0) for user messaging.
type Result struct {
	Entries []Entry      `json:"entries"`
	Edges   []model.Edge `json:"edges"`

	// ResolvedSeeds counts seeds found in the store; percentage is
	// relative to this, not to the raw input size.
	ResolvedSeeds int `json:"resolvedSeeds"`
	// DroppedSeeds lists input seeds absent from the store.
	DroppedSeeds []string `json:"droppedSeeds,omitempty"`
}

// NoValidSeeds reports whether every input seed was unresolvable.
func (r *Result) NoValidSeeds() bool { return r.ResolvedSeeds == 0 }

// Domains returns the ranked result domains in order.
func (r *Result) Domains() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Domain
	}
	return out
}

// Engine runs discovery queries against a graph store.
type Engine struct {
	store   store.GraphStore
	workers int
}

// NewEngine creates an engine. workers <= 0 selects one worker per
// CPU; seeds are independent, so per-seed aggregation parallelizes.
func NewEngine(st store.GraphStore, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{store: st, workers: workers}
}

// incidence records which seeds a neighbor was actually observed
// linking to/from. Counting is per (seed, neighbor) pair: parallel
// links between the same pair count once.
type incidence map[int64]map[int64]bool

// Discover finds domains connected to at least minConnections of the
// seeds, ranked by connection count descending with ties broken by
// domain so results are reproducible. Seeds absent from the store are
// dropped, not errors.
func (e *Engine) Discover(ctx context.Context, seeds []string, minConnections int, direction model.Direction) (*Result, error) {
	if minConnections < 1 {
		return nil, fmt.Errorf("minConnections must be >= 1, got %d", minConnections)
	}

	result := &Result{Entries: []Entry{}, Edges: []model.Edge{}}

	// Resolve seeds; unresolvable seeds are diagnostic, not fatal.
	seedIDs := make([]int64, 0, len(seeds))
	seedDomains := make(map[int64]string, len(seeds))
	for _, domain := range seeds {
		id, ok, err := e.store.DomainToID(domain)
		if err != nil {
			return nil, fmt.Errorf("resolving seed %q: %w", domain, err)
		}
		if !ok {
			result.DroppedSeeds = append(result.DroppedSeeds, domain)
			continue
		}
		if _, seen := seedDomains[id]; seen {
			continue
		}
		seedDomains[id] = domain
		seedIDs = append(seedIDs, id)
	}
	result.ResolvedSeeds = len(seedIDs)
	if result.ResolvedSeeds == 0 {
		return result, nil
	}

	counts, err := e.aggregate(ctx, seedIDs, seedDomains, direction)
	if err != nil {
		return nil, err
	}

	// Threshold, resolve surviving ids, rank.
	for neighborID, seedSet := range counts {
		if len(seedSet) < minConnections {
			continue
		}
		domain, ok, err := e.store.IDToDomain(neighborID)
		if err != nil {
			return nil, fmt.Errorf("resolving neighbor %d: %w", neighborID, err)
		}
		if !ok {
			continue
		}
		result.Entries = append(result.Entries, Entry{
			Domain:      domain,
			Connections: len(seedSet),
			Percentage:  round2(float64(len(seedSet)) / float64(result.ResolvedSeeds) * 100),
		})

		// One edge per observed (seed, neighbor) incidence, oriented
		// by direction. Never a cross-product over all seeds.
		seedsOf := make([]string, 0, len(seedSet))
		for seedID := range seedSet {
			seedsOf = append(seedsOf, seedDomains[seedID])
		}
		sort.Strings(seedsOf)
		for _, seed := range seedsOf {
			if direction == model.Backlinks {
				result.Edges = append(result.Edges, model.Edge{Source: domain, Target: seed})
			} else {
				result.Edges = append(result.Edges, model.Edge{Source: seed, Target: domain})
			}
		}
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		if result.Entries[i].Connections != result.Entries[j].Connections {
			return result.Entries[i].Connections > result.Entries[j].Connections
		}
		return result.Entries[i].Domain < result.Entries[j].Domain
	})
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].Source != result.Edges[j].Source {
			return result.Edges[i].Source < result.Edges[j].Source
		}
		return result.Edges[i].Target < result.Edges[j].Target
	})

	return result, nil
}

// aggregate fans seeds out over a worker pool. Each worker fetches a
// seed's whole neighbor list in one store call and merges a local
// incidence map under the shared lock; final ranking is sorted later,
// so execution order does not affect the result.
func (e *Engine) aggregate(ctx context.Context, seedIDs []int64, seedDomains map[int64]string, direction model.Direction) (incidence, error) {
	seedSet := make(map[int64]bool, len(seedIDs))
	for _, id := range seedIDs {
		seedSet[id] = true
	}

	var mu sync.Mutex
	merged := make(incidence)
	var firstErr error
	jobs := make(chan int64)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(seedIDs) {
		workers = len(seedIDs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(incidence)
			for seedID := range jobs {
				// Workers keep draining jobs after a failure or
				// cancellation; bailing out of the loop would leave
				// the feeder blocked on a channel with no receiver.
				if ctx.Err() != nil {
					continue
				}
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				var neighbors []int64
				var err error
				if direction == model.Backlinks {
					neighbors, err = e.store.Predecessors(seedID)
				} else {
					neighbors, err = e.store.Successors(seedID)
				}
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("fetching neighbors of %q: %w", seedDomains[seedID], err)
					}
					mu.Unlock()
					continue
				}
				for _, n := range neighbors {
					if seedSet[n] {
						continue
					}
					if local[n] == nil {
						local[n] = make(map[int64]bool)
					}
					local[n][seedID] = true
				}
			}
			mu.Lock()
			for n, seeds := range local {
				if merged[n] == nil {
					merged[n] = seeds
					continue
				}
				for s := range seeds {
					merged[n][s] = true
				}
			}
			mu.Unlock()
		}()
	}

	for _, id := range seedIDs {
		select {
		case jobs <- id:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merged, nil
}

// DiscoverFast returns only the domains meeting the threshold, using
// the store's server-side shared-neighbor filter when available and
// falling back to a full Discover otherwise. No counts are computed.
func (e *Engine) DiscoverFast(ctx context.Context, seeds []string, minConnections int, direction model.Direction) ([]string, error) {
	finder, ok := e.store.(store.SharedNeighborFinder)
	if !ok {
		result, err := e.Discover(ctx, seeds, minConnections, direction)
		if err != nil {
			return nil, err
		}
		return result.Domains(), nil
	}

	seedIDs := make([]int64, 0, len(seeds))
	seedSet := make(map[string]bool, len(seeds))
	for _, domain := range seeds {
		id, found, err := e.store.DomainToID(domain)
		if err != nil {
			return nil, fmt.Errorf("resolving seed %q: %w", domain, err)
		}
		if found {
			seedIDs = append(seedIDs, id)
			seedSet[domain] = true
		}
	}
	if len(seedIDs) == 0 {
		return nil, nil
	}

	var ids []int64
	var err error
	if direction == model.Backlinks {
		ids, err = finder.SharedPredecessors(seedIDs, minConnections, len(seedIDs))
	} else {
		ids, err = finder.SharedSuccessors(seedIDs, minConnections, len(seedIDs))
	}
	if err != nil {
		return nil, fmt.Errorf("shared neighbor query: %w", err)
	}

	domains := make([]string, 0, len(ids))
	for _, id := range ids {
		domain, found, err := e.store.IDToDomain(id)
		if err != nil {
			return nil, fmt.Errorf("resolving neighbor %d: %w", id, err)
		}
		if found && !seedSet[domain] {
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)
	return domains, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
