package discovery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/netneighbors/netneighbors/pkg/model"
	"gopkg.in/yaml.v3"
)

// Manifest describes a named intersection analysis: two seed groups
// with their kinds and thresholds, and the kind to tag shared
// connectors with. Seeds come inline or from a one-domain-per-line
// file resolved relative to the manifest.
type Manifest struct {
	Name       string        `yaml:"name"`
	SharedKind string        `yaml:"shared_kind"`
	GroupA     GroupManifest `yaml:"group_a"`
	GroupB     GroupManifest `yaml:"group_b"`

	baseDir string
}

// GroupManifest is one seed group in a manifest.
type GroupManifest struct {
	Kind           string   `yaml:"kind"`
	Seeds          []string `yaml:"seeds"`
	SeedsFile      string   `yaml:"seeds_file"`
	MinConnections int      `yaml:"min_connections"`
}

// LoadManifest parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.SharedKind == "" {
		m.SharedKind = string(model.KindLinkSpam)
	}
	if err := m.GroupA.validate("group_a"); err != nil {
		return nil, err
	}
	if err := m.GroupB.validate("group_b"); err != nil {
		return nil, err
	}
	m.baseDir = filepath.Dir(path)
	return &m, nil
}

func (g *GroupManifest) validate(name string) error {
	if g.Kind == "" {
		return fmt.Errorf("manifest %s: kind is required", name)
	}
	if len(g.Seeds) == 0 && g.SeedsFile == "" {
		return fmt.Errorf("manifest %s: seeds or seeds_file is required", name)
	}
	if g.MinConnections < 1 {
		return fmt.Errorf("manifest %s: min_connections must be >= 1", name)
	}
	return nil
}

// Groups resolves the manifest into engine inputs, loading seed files
// as needed.
func (m *Manifest) Groups() (Group, Group, model.NodeKind, error) {
	a, err := m.GroupA.resolve(m.baseDir)
	if err != nil {
		return Group{}, Group{}, "", err
	}
	b, err := m.GroupB.resolve(m.baseDir)
	if err != nil {
		return Group{}, Group{}, "", err
	}
	return a, b, model.NodeKind(m.SharedKind), nil
}

func (g *GroupManifest) resolve(baseDir string) (Group, error) {
	seeds := g.Seeds
	if g.SeedsFile != "" {
		path := g.SeedsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		loaded, err := LoadSeedList(path)
		if err != nil {
			return Group{}, err
		}
		seeds = append(seeds, loaded...)
	}
	return Group{
		Kind:           model.NodeKind(g.Kind),
		Seeds:          seeds,
		MinConnections: g.MinConnections,
	}, nil
}

// LoadSeedList reads a seed file with one domain per line. A UTF-8
// BOM and blank lines are tolerated.
func LoadSeedList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed list: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading seed list %s: %w", path, err)
	}
	return seeds, nil
}
