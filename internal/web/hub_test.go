package web

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	hub := NewTurnHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if hub.join(&Client{ID: "late", Slot: "s", Send: make(chan []byte, 1), Hub: hub}) {
		t.Fatalf("join succeeded on a stopped hub")
	}

	// More departures than the unregister buffer holds must not block.
	left := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.leave(&Client{ID: "gone", Slot: "s", Hub: hub})
		}
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(5 * time.Second):
		t.Fatalf("leave blocked after shutdown")
	}
}
