// Package config loads application settings from defaults, an
// optional TOML file, environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the application
type Config struct {
	// StorePath is the SQLite link-graph database.
	StorePath string `koanf:"store"`
	// DatasetDir is watched for new vertex/link dumps to import.
	DatasetDir string `koanf:"dataset-dir"`
	Watch      bool   `koanf:"watch"`

	Port int `koanf:"port"`

	// MergeThreshold is the new-node count above which an expansion
	// needs explicit confirmation.
	MergeThreshold int `koanf:"merge-threshold"`
	// Workers sizes the discovery worker pool; 0 means one per CPU.
	Workers int `koanf:"workers"`

	MinConnections int    `koanf:"min-connections"`
	Direction      string `koanf:"direction"`

	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"store":           "netneighbors.db",
		"dataset-dir":     "",
		"watch":           false,
		"port":            8080,
		"merge-threshold": 150,
		"workers":         0,
		"min-connections": 2,
		"direction":       "backlinks",
		"verbosity":       "",
		"verbose":         0,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - netneighbors.toml
	// Ignored when the file does not exist
	_ = k.Load(file.Provider("netneighbors.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: NETNEIGHBORS_ (e.g., NETNEIGHBORS_PORT=9090)
	if err := k.Load(env.Provider("NETNEIGHBORS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "NETNEIGHBORS_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
