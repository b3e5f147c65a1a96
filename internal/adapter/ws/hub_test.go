package ws

import (
	"context"
	"testing"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub()

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()

	// A channel cannot be marshaled to JSON; the event is dropped, not a panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &client{ws: nil, cancel: cancel}
	hub.remove(c)
}

func TestSinkPublishNoConnections(t *testing.T) {
	sink := NewSink(NewHub())

	sink.Publish(execution.NewEvent(execution.EventStarted, "e1", execution.StartedData{AgentID: "a1"}))
}
