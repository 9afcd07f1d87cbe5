package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/netneighbors/netneighbors/pkg/logging"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load <vertices-file> <links-file>",
	Short: "Import a link graph dataset into the store",
	Long: `Import a host-level web graph into the SQLite link store.

The vertices file maps numeric ids to domains in reversed notation
(com.example), one "id<TAB>domain" per line. The links file holds one
"sourceID<TAB>targetID" pair per line. Both may be gzip-compressed.

Example:
  netneighbors load vertices.txt.gz edges.txt.gz --store graph.db`,
	Args: cobra.ExactArgs(2),
	RunE: runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.StorePath, err)
	}
	defer st.Close()

	logging.Info("importing dataset", "vertices", args[0], "links", args[1], "store", cfg.StorePath)

	stats, err := st.ImportDataset(args[0], args[1])
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ imported %d vertices and %d links into %s\n", stats.Vertices, stats.Links, cfg.StorePath)
	return nil
}
