package main

import (
	"fmt"
	"os"

	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/export"
	"github.com/netneighbors/netneighbors/pkg/model"
	"github.com/netneighbors/netneighbors/pkg/output"
	"github.com/netneighbors/netneighbors/pkg/validate"
	"github.com/spf13/cobra"
)

func init() {
	discoverCmd.Flags().Int("min-connections", 2, "Minimum seeds a domain must connect to")
	discoverCmd.Flags().String("direction", "backlinks", "Link direction: backlinks or outlinks")
	discoverCmd.Flags().Int("workers", 0, "Discovery worker count (0 = one per CPU)")
	discoverCmd.Flags().String("seeds-file", "", "File with one seed domain per line")
	discoverCmd.Flags().String("nodes-csv", "", "Write the result nodes to this CSV file")
	discoverCmd.Flags().String("edges-csv", "", "Write the result edges to this CSV file")
	discoverCmd.Flags().String("gexf", "", "Write the result graph to this GEXF file")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover [domains...]",
	Short: "Rank domains linked to a seed set",
	Long: `Rank the domains that link to (or are linked from) the seeds.

A domain is reported when it connects to at least --min-connections
seeds; duplicate links between the same pair count once.

Example:
  netneighbors discover cnn.com bbc.com --min-connections 2`,
	Args: cobra.ArbitraryArgs,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	direction, err := model.ParseDirection(cfg.Direction)
	if err != nil {
		return err
	}

	seeds, err := gatherSeeds(cmd, args)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seed domains given (arguments or --seeds-file)")
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.StorePath, err)
	}
	defer st.Close()

	report, err := validate.Seeds(st, seeds)
	if err != nil {
		return err
	}
	if len(report.Malformed) > 0 || len(report.NotFound) > 0 {
		output.PrintValidationReport(report)
		fmt.Println()
	}
	if len(report.Found) == 0 {
		return fmt.Errorf("no seed resolves in the link graph")
	}

	engine := discovery.NewEngine(st, cfg.Workers)
	result, err := engine.Discover(cmd.Context(), report.Found, cfg.MinConnections, direction)
	if err != nil {
		return err
	}

	output.PrintDiscoveryResult(result, direction)

	return writeExports(cmd, resultGraph(report.Found, result, direction))
}

// gatherSeeds combines positional arguments with an optional seed file.
func gatherSeeds(cmd *cobra.Command, args []string) ([]string, error) {
	seeds := append([]string{}, args...)
	path, err := cmd.Flags().GetString("seeds-file")
	if err != nil {
		return nil, err
	}
	if path != "" {
		fromFile, err := discovery.LoadSeedList(path)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, fromFile...)
	}
	return seeds, nil
}

// resultGraph builds an exportable graph from one discovery run:
// seeds at hop 0, discovered domains at hop 1.
func resultGraph(seeds []string, result *discovery.Result, direction model.Direction) *model.Graph {
	g := model.NewGraph()
	for _, seed := range seeds {
		g.AddNode(&model.Node{ID: seed, Kind: model.KindSeed, Hop: 0})
	}
	for _, entry := range result.Entries {
		g.AddNode(&model.Node{
			ID:          entry.Domain,
			Kind:        model.KindDiscovered,
			Hop:         1,
			Connections: entry.Connections,
		})
	}
	for _, edge := range result.Edges {
		g.AddEdge(edge.Source, edge.Target)
	}
	return g
}

// writeExports writes the graph to whichever export paths were given.
func writeExports(cmd *cobra.Command, g *model.Graph) error {
	write := func(flag string, render func(f *os.File) error) error {
		path, err := cmd.Flags().GetString(flag)
		if err != nil || path == "" {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := render(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}

	if err := write("nodes-csv", func(f *os.File) error { return export.NodesCSV(f, g) }); err != nil {
		return err
	}
	if err := write("edges-csv", func(f *os.File) error { return export.EdgesCSV(f, g) }); err != nil {
		return err
	}
	return write("gexf", func(f *os.File) error { return export.GEXF(f, g) })
}
