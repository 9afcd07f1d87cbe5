package store

// Memory is an in-memory GraphStore for tests and small hand-built
// datasets. Vertices are numbered in insertion order.
type Memory struct {
	ids     map[string]int64
	domains []string
	preds   map[int64][]int64
	succs   map[int64][]int64
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		ids:   make(map[string]int64),
		preds: make(map[int64][]int64),
		succs: make(map[int64][]int64),
	}
}

// AddDomain registers a domain and returns its vertex id. Adding an
// existing domain returns the id it already has.
func (m *Memory) AddDomain(domain string) int64 {
	if id, ok := m.ids[domain]; ok {
		return id
	}
	id := int64(len(m.domains))
	m.ids[domain] = id
	m.domains = append(m.domains, domain)
	return id
}

// AddLink records a directed link from source to target, creating the
// vertices as needed. Calling it twice for the same pair records two
// parallel links, as a crawl with multiple observations would.
func (m *Memory) AddLink(source, target string) {
	src := m.AddDomain(source)
	dst := m.AddDomain(target)
	m.succs[src] = append(m.succs[src], dst)
	m.preds[dst] = append(m.preds[dst], src)
}

// Close marks the store unloaded; subsequent queries fail with
// ErrNotLoaded.
func (m *Memory) Close() { m.closed = true }

func (m *Memory) DomainToID(domain string) (int64, bool, error) {
	if m.closed {
		return 0, false, ErrNotLoaded
	}
	id, ok := m.ids[domain]
	return id, ok, nil
}

func (m *Memory) IDToDomain(id int64) (string, bool, error) {
	if m.closed {
		return "", false, ErrNotLoaded
	}
	if id < 0 || id >= int64(len(m.domains)) {
		return "", false, nil
	}
	return m.domains[id], true, nil
}

func (m *Memory) Predecessors(id int64) ([]int64, error) {
	if m.closed {
		return nil, ErrNotLoaded
	}
	return m.preds[id], nil
}

func (m *Memory) Successors(id int64) ([]int64, error) {
	if m.closed {
		return nil, ErrNotLoaded
	}
	return m.succs[id], nil
}

// ScanOnly wraps a Memory store to model dictionary-style stores whose
// vertex list can only be read sequentially. Scanned records how many
// dictionary entries a scan visited, so tests can verify early exit.
type ScanOnly struct {
	*Memory
	Scanned int
}

// NewScanOnly wraps m as a scan-based store.
func NewScanOnly(m *Memory) *ScanOnly {
	return &ScanOnly{Memory: m}
}

// ScanDomains visits the vertex dictionary in insertion order until fn
// returns false or the dictionary is exhausted.
func (s *ScanOnly) ScanDomains(fn func(domain string, id int64) bool) error {
	if s.closed {
		return ErrNotLoaded
	}
	for id, domain := range s.domains {
		s.Scanned++
		if !fn(domain, int64(id)) {
			return nil
		}
	}
	return nil
}
