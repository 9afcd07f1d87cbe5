package main

import (
	"context"
	"fmt"
	"time"

	"github.com/netneighbors/netneighbors/pkg/config"
	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/logging"
	"github.com/netneighbors/netneighbors/pkg/pubsub"
	"github.com/netneighbors/netneighbors/pkg/session"
	"github.com/netneighbors/netneighbors/pkg/store/sqlite"
	"github.com/netneighbors/netneighbors/pkg/watcher"
	"github.com/netneighbors/netneighbors/pkg/web"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP port")
	serveCmd.Flags().Int("merge-threshold", session.DefaultMergeThreshold, "New-node count above which an expansion needs confirmation")
	serveCmd.Flags().Int("workers", 0, "Discovery worker count (0 = one per CPU)")
	serveCmd.Flags().String("dataset-dir", "", "Directory watched for new graph dumps")
	serveCmd.Flags().Bool("watch", false, "Import dumps appearing in the dataset directory")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session graph API over HTTP",
	Long: `Serve the session graph JSON API with SSE change notifications.

The session starts empty; clients add seeds, expand the graph hop by
hop, and export the result. With --watch, new vertex/link dumps
dropped into --dataset-dir are imported into the store automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.StorePath, err)
	}
	defer st.Close()

	engine := discovery.NewEngine(st, cfg.Workers)
	sess := session.New(engine, cfg.MergeThreshold)
	srv := web.NewServer(sess, engine, st)

	if cfg.Watch {
		if cfg.DatasetDir == "" {
			return fmt.Errorf("--watch requires --dataset-dir")
		}
		if err := startDatasetWatcher(cmd.Context(), cfg, st, srv.Publisher()); err != nil {
			return fmt.Errorf("starting dataset watcher: %w", err)
		}
	}

	return srv.Start(cfg.Port)
}

// startDatasetWatcher imports complete dump pairs that appear in the
// dataset directory and reports store status over the event bus.
func startDatasetWatcher(ctx context.Context, cfg *config.Config, st *sqlite.Store, pub pubsub.Publisher) error {
	dw, err := watcher.NewDatasetWatcher(cfg.DatasetDir)
	if err != nil {
		return err
	}
	if err := dw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(dw.Events(), 2*time.Second, 30*time.Second)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			// A flush emits one event per change type; gather the whole
			// batch before deciding what to do.
			batch := []watcher.ChangeEvent{event}
		drain:
			for {
				select {
				case next, ok := <-debouncer.Output():
					if !ok {
						break drain
					}
					batch = append(batch, next)
				case <-time.After(200 * time.Millisecond):
					break drain
				}
			}

			analysis := watcher.AnalyzeChanges(batch)
			switch {
			case analysis.NeedReopen:
				// Swapping the open store underneath running queries is
				// not supported; the operator has to restart.
				logging.Warn("store file replaced, restart to pick it up", "path", analysis.StorePath)

			case analysis.NeedImport && len(analysis.VerticesPaths) > 0 && len(analysis.EdgesPaths) > 0:
				vertices := analysis.VerticesPaths[len(analysis.VerticesPaths)-1]
				links := analysis.EdgesPaths[len(analysis.EdgesPaths)-1]

				publishStore(pub, "importing", cfg.StorePath, fmt.Sprintf("importing %s + %s", vertices, links))
				stats, err := st.ImportDataset(vertices, links)
				if err != nil {
					logging.Error("dataset import failed", "error", err)
					publishStore(pub, "unavailable", cfg.StorePath, err.Error())
					continue
				}
				logging.Info("dataset imported", "vertices", stats.Vertices, "links", stats.Links)
				publishStore(pub, "ready", cfg.StorePath,
					fmt.Sprintf("imported %d vertices, %d links", stats.Vertices, stats.Links))

			case analysis.NeedImport:
				logging.Info("partial dataset change, waiting for matching dump",
					"vertices", len(analysis.VerticesPaths), "edges", len(analysis.EdgesPaths))
			}
		}
	}()

	return nil
}

func publishStore(pub pubsub.Publisher, state, path, message string) {
	status := pubsub.StoreStatus{State: state, Path: path, Message: message}
	if err := pub.Publish(pubsub.TopicStore, state, status); err != nil {
		logging.Warn("failed to publish store status", "error", err)
	}
}
