package main

import (
	"fmt"

	"github.com/netneighbors/netneighbors/pkg/output"
	"github.com/netneighbors/netneighbors/pkg/validate"
	"github.com/spf13/cobra"
)

func init() {
	validateCmd.Flags().String("seeds-file", "", "File with one seed domain per line")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [domains...]",
	Short: "Check seed domains against the link graph",
	Long: `Normalize and validate seed domains, then check which are
present in the link store's vertex dictionary.

Example:
  netneighbors validate cnn.com bbc.com
  netneighbors validate --seeds-file seeds.txt`,
	Args: cobra.ArbitraryArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	seeds, err := gatherSeeds(cmd, args)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no domains given (arguments or --seeds-file)")
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
	output.PrintValidationReport(report)
	return nil
}
