package watcher

import (
	"context"
	"time"

	"github.com/netneighbors/netneighbors/pkg/logging"
)

// Debouncer batches rapid file system events so a multi-gigabyte dump
// being written in chunks triggers one import, not hundreds. An event
// is released after quietPeriod without new input, or after maxWait
// regardless.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	var (
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	quietTimer := time.NewTimer(d.quietPeriod)
	quietTimer.Stop()
	maxWaitTimer := time.NewTimer(d.maxWait)
	maxWaitTimer.Stop()

	flush := func() {
		quietTimer.Stop()
		maxWaitTimer.Stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Vertices must be imported before the edges referencing them
		for _, typ := range []ChangeType{ChangeTypeVertices, ChangeTypeEdges, ChangeTypeStore} {
			if paths, ok := accumulated[typ]; ok && len(paths) > 0 {
				d.output <- ChangeEvent{
					Type:      typ,
					Paths:     paths,
					Timestamp: time.Now(),
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			close(d.output)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				close(d.output)
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			quietTimer.Reset(d.quietPeriod)
			if eventCount == 1 {
				maxWaitTimer.Reset(d.maxWait)
			}

		case <-quietTimer.C:
			flush()

		case <-maxWaitTimer.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
