package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Graph topic keeps a short history so late subscribers catch up
	pub.ConfigureTopic(TopicGraph, TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Publish 5 updates
	for i := 1; i <= 5; i++ {
		err := pub.Publish(TopicGraph, "merged", GraphUpdate{Nodes: i, Hop: 1, State: "idle"})
		if err != nil {
			t.Fatalf("Failed to publish update %d: %v", i, err)
		}
	}

	// Subscribe and verify we get last 3 events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicGraph)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (versions 3, 4, 5)
	receivedCount := 0
	for receivedCount < 3 {
		select {
		case event := <-sub.Events():
			receivedCount++
			expectedVersion := receivedCount + 2
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
			var update GraphUpdate
			if err := json.Unmarshal(event.Data, &update); err != nil {
				t.Errorf("Event payload is not a GraphUpdate: %v", err)
			} else if update.Nodes != expectedVersion {
				t.Errorf("Expected %d nodes, got %d", expectedVersion, update.Nodes)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", receivedCount+1)
		}
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Store status only needs the latest state on connect
	pub.ConfigureTopic(TopicStore, TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	states := []string{"importing", "importing", "ready"}
	for i, state := range states {
		err := pub.Publish(TopicStore, state, StoreStatus{State: state, Path: "test.db"})
		if err != nil {
			t.Fatalf("Failed to publish status %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicStore)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only the latest status
	select {
	case event := <-sub.Events():
		if event.Version != 3 || event.Type != "ready" {
			t.Errorf("Expected version 3 type ready, got %d %s", event.Version, event.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are replayed
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicGraph, TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish(TopicGraph, "merged", GraphUpdate{Nodes: i})
		if err != nil {
			t.Fatalf("Failed to publish update %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicGraph)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, nothing buffered
	}

	// A new event after subscribing is delivered
	if err := pub.Publish(TopicGraph, "merged", GraphUpdate{Nodes: 4}); err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	pub := NewSSEPublisher()
	pub.Close()

	if err := pub.Publish(TopicGraph, "merged", GraphUpdate{}); err == nil {
		t.Error("Publish after Close should fail")
	}
	if _, err := pub.Subscribe(context.Background(), TopicGraph); err == nil {
		t.Error("Subscribe after Close should fail")
	}
}
