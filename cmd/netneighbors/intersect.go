package main

import (
	"fmt"

	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/output"
	"github.com/spf13/cobra"
)

func init() {
	intersectCmd.Flags().String("manifest", "", "YAML manifest describing the two seed groups")
	intersectCmd.Flags().Int("workers", 0, "Discovery worker count (0 = one per CPU)")
	intersectCmd.Flags().String("nodes-csv", "", "Write the result nodes to this CSV file")
	intersectCmd.Flags().String("edges-csv", "", "Write the result edges to this CSV file")
	intersectCmd.Flags().String("gexf", "", "Write the result graph to this GEXF file")
	_ = intersectCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(intersectCmd)
}

var intersectCmd = &cobra.Command{
	Use:   "intersect --manifest <file>",
	Short: "Find domains backlinking two seed groups",
	Long: `Find the domains that backlink seeds of BOTH groups in a
manifest, for example casino sites and misinformation sites. Shared
connectors are tagged and seeds without a shared backlinker are
dropped from the output.

Manifest format:

  name: link-spam
  shared_kind: link_spam
  group_a:
    kind: casino
    seeds_file: casinos.txt
    min_connections: 10
  group_b:
    kind: misinfo
    seeds: [misinfo1.com, misinfo2.com]
    min_connections: 5`,
	Args: cobra.NoArgs,
	RunE: runIntersect,
}

func runIntersect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return err
	}
	manifest, err := discovery.LoadManifest(path)
	if err != nil {
		return err
	}
	groupA, groupB, sharedKind, err := manifest.Groups()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.StorePath, err)
	}
	defer st.Close()

	engine := discovery.NewEngine(st, cfg.Workers)
	graph, err := engine.IntersectBacklinkers(cmd.Context(), groupA, groupB, sharedKind)
	if err != nil {
		return err
	}

	output.PrintIntersectionResult(graph, sharedKind)

	return writeExports(cmd, graph)
}
