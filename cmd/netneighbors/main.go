// Package main provides the netneighbors CLI entry point.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/netneighbors/netneighbors/pkg/config"
	"github.com/netneighbors/netneighbors/pkg/logging"
	"github.com/netneighbors/netneighbors/pkg/store/sqlite"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netneighbors",
	Short: "Domain discovery over a web link graph",
	Long: `netneighbors explores who links to whom on the web.

Starting from a set of seed domains it ranks the domains that link to
(or are linked from) the seeds, grows a session graph hop by hop, and
exports the result as CSV or GEXF. The link graph is a local SQLite
store imported from host-level web graph dumps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().String("store", "netneighbors.db", "Path to the SQLite link store")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity")
	rootCmd.PersistentFlags().String("verbosity", "", "Log level: debug, info, warn or error")
}

// loadConfig resolves configuration for a command and applies the
// logging settings it carries.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	switch cfg.Verbosity {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "":
		if cfg.VerboseCnt > 0 {
			level = slog.LevelDebug
		}
	}
	logging.SetLevel(level)

	return cfg, nil
}

// openStore opens the configured SQLite link store.
func openStore(cfg *config.Config) (*sqlite.Store, error) {
	return sqlite.Open(cfg.StorePath)
}
