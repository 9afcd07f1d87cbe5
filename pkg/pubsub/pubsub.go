// Package pubsub provides topic-based event publishing with replay
// buffers, consumed by the web server's SSE endpoint.
package pubsub

import (
	"context"
	"encoding/json"
)

// Well-known topics.
const (
	// TopicGraph carries session graph updates.
	TopicGraph = "graph"
	// TopicStore carries link-store lifecycle events (imports, reloads).
	TopicStore = "store"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "graph", "store")
	Type    string          `json:"type"`    // Event type (e.g., "merged", "staged", "importing")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GraphUpdate summarizes the session graph after a mutation.
type GraphUpdate struct {
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Hop     int    `json:"hop"`
	State   string `json:"state"`   // idle or awaiting_confirmation
	Message string `json:"message"` // Human-readable change description
}

// StoreStatus describes the link store's availability.
type StoreStatus struct {
	State   string `json:"state"`   // importing, ready, unavailable
	Path    string `json:"path"`    // Store file the status refers to
	Message string `json:"message"` // Human-readable status message
}
