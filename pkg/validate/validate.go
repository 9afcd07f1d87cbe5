// Package validate normalizes candidate domains, checks their syntax,
// and verifies their presence in the graph store. Problems are always
// reported as diagnostic counts, never as errors: a bad domain in a
// seed list is expected input.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/netneighbors/netneighbors/pkg/store"
)

// MaxSeeds caps the number of domains accepted in one request.
const MaxSeeds = 10000

// ErrTooManySeeds is returned when an input list exceeds MaxSeeds.
var ErrTooManySeeds = errors.New("too many seed domains")

// Labels are dot-separated, alphanumeric with interior hyphens, at
// most 63 chars; the top-level label is alphabetic with length >= 2.
var domainPattern = regexp.MustCompile(
	`^(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)*[A-Za-z]{2,63}$`,
)

// Normalize trims whitespace and lowercases a raw domain string.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsWellFormed reports whether domain is syntactically valid.
func IsWellFormed(domain string) bool {
	return domainPattern.MatchString(domain)
}

// Report carries the diagnostic counts for one validation pass.
// Total counts the raw inputs, duplicates included; the other fields
// describe the deduplicated candidates. Added is filled in by the
// caller after merging into a session graph, since only the session
// knows which domains were already present.
type Report struct {
	Total      int      `json:"total"`
	WellFormed int      `json:"wellFormed"`
	Found      []string `json:"found"`
	NotFound   []string `json:"notFound"`
	Malformed  []string `json:"malformed"`
	Added      int      `json:"added"`
}

// Summary renders the report as a one-line status message.
func (r *Report) Summary() string {
	parts := []string{fmt.Sprintf("found %d/%d seeds in graph", len(r.Found), r.Total)}
	if n := len(r.Malformed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d malformed", n))
	}
	switch n := len(r.NotFound); {
	case n > 5:
		parts = append(parts, fmt.Sprintf("not found: %d domains", n))
	case n > 0:
		parts = append(parts, "not found: "+strings.Join(r.NotFound, ", "))
	}
	return strings.Join(parts, " | ")
}

// Seeds normalizes, deduplicates, and validates raw domain strings
// against the store, producing a full diagnostic report. Order is
// preserved from the input.
func Seeds(st store.GraphStore, raws []string) (*Report, error) {
	if len(raws) > MaxSeeds {
		return nil, fmt.Errorf("%w: %d given, maximum %d", ErrTooManySeeds, len(raws), MaxSeeds)
	}

	report := &Report{Total: len(raws)}
	seen := make(map[string]bool)
	var candidates []string
	for _, raw := range raws {
		domain := Normalize(raw)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		if !IsWellFormed(domain) {
			report.Malformed = append(report.Malformed, domain)
			continue
		}
		report.WellFormed++
		candidates = append(candidates, domain)
	}

	found, notFound, err := AgainstStore(st, candidates)
	if err != nil {
		return nil, err
	}
	report.Found = found
	report.NotFound = notFound
	return report, nil
}

// AgainstStore partitions domains into those present in the store and
// those absent. When the store's vertex dictionary can only be read
// sequentially, the scan stops as soon as every candidate has been
// found rather than walking the whole dictionary.
func AgainstStore(st store.GraphStore, domains []string) (found, notFound []string, err error) {
	if len(domains) == 0 {
		return nil, nil, nil
	}

	hits := make(map[string]bool, len(domains))

	if scanner, ok := st.(store.DomainScanner); ok {
		remaining := make(map[string]bool, len(domains))
		for _, d := range domains {
			remaining[d] = true
		}
		err := scanner.ScanDomains(func(domain string, _ int64) bool {
			if remaining[domain] {
				delete(remaining, domain)
				hits[domain] = true
			}
			return len(remaining) > 0
		})
		if err != nil {
			return nil, nil, fmt.Errorf("scanning vertex dictionary: %w", err)
		}
	} else {
		for _, d := range domains {
			_, ok, err := st.DomainToID(d)
			if err != nil {
				return nil, nil, fmt.Errorf("looking up %q: %w", d, err)
			}
			if ok {
				hits[d] = true
			}
		}
	}

	for _, d := range domains {
		if hits[d] {
			found = append(found, d)
		} else {
			notFound = append(notFound, d)
		}
	}
	return found, notFound, nil
}
