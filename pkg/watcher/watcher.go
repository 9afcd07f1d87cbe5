// Package watcher monitors a dataset directory for new link-graph
// dumps and store files, batching changes for the import pipeline.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/netneighbors/netneighbors/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeVertices is a vertex dump (id to domain mapping).
	ChangeTypeVertices ChangeType = iota
	// ChangeTypeEdges is a link dump (source id to target id pairs).
	ChangeTypeEdges
	// ChangeTypeStore is a prebuilt SQLite store dropped in place.
	ChangeTypeStore
)

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// DatasetWatcher watches a dataset directory for dump and store files
type DatasetWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	events   chan ChangeEvent
	stopOnce sync.Once
}

// NewDatasetWatcher creates a watcher for a dataset directory
func NewDatasetWatcher(dir string) (*DatasetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &DatasetWatcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (dw *DatasetWatcher) Start(ctx context.Context) error {
	if _, err := os.Stat(dw.dir); err != nil {
		return fmt.Errorf("dataset directory not accessible: %w", err)
	}
	if err := dw.watcher.Add(dw.dir); err != nil {
		return fmt.Errorf("failed to watch dataset directory: %w", err)
	}

	logging.Info("started watching dataset directory", "path", dw.dir)

	go dw.processEvents(ctx)

	return nil
}

// classify maps a file name to a change type. Returns false for files
// the import pipeline does not care about.
func classify(path string) (ChangeType, bool) {
	name := strings.ToLower(filepath.Base(path))

	// Partial downloads and editor temp files
	if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".part") || strings.HasPrefix(name, ".") {
		return 0, false
	}

	switch {
	case strings.HasSuffix(name, ".db"):
		return ChangeTypeStore, true
	case strings.Contains(name, "vertices"):
		return ChangeTypeVertices, true
	case strings.Contains(name, "edges") || strings.Contains(name, "links"):
		return ChangeTypeEdges, true
	}
	return 0, false
}

// processEvents batches file system events by type so the importer
// sees one event per dump, not one per write syscall. The events
// channel closes on every exit path so downstream loops terminate
// whether shutdown came from the context or from Stop.
func (dw *DatasetWatcher) processEvents(ctx context.Context) {
	defer close(dw.events)

	accumulated := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		for _, typ := range []ChangeType{ChangeTypeVertices, ChangeTypeEdges, ChangeTypeStore} {
			paths := accumulated[typ]
			if len(paths) == 0 {
				continue
			}
			dw.events <- ChangeEvent{
				Type:      typ,
				Paths:     paths,
				Timestamp: time.Now(),
			}
		}
		accumulated = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			dw.watcher.Close()
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			typ, ok := classify(event.Name)
			if !ok {
				continue
			}
			accumulated[typ] = append(accumulated[typ], event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			flush()

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (dw *DatasetWatcher) Events() <-chan ChangeEvent {
	return dw.events
}

// Stop closes the watcher, ending the event loop. Safe to call more
// than once and after context cancellation has already shut it down.
func (dw *DatasetWatcher) Stop() error {
	var err error
	dw.stopOnce.Do(func() { err = dw.watcher.Close() })
	return err
}
