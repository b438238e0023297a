package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(hub.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	events := Subscribe(ctx, wsURL)
	waitForClients(t, hub, 1)

	hub.Broadcast(Event{Type: TypeCampaignsChanged, Tab: "active", ID: "42"})

	select {
	case ev := <-events:
		if ev.Type != TypeCampaignsChanged || ev.Tab != "active" || ev.ID != "42" {
			t.Errorf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(hub.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	a := Subscribe(ctx, wsURL)
	b := Subscribe(ctx, wsURL)
	waitForClients(t, hub, 2)

	hub.Broadcast(Event{Type: TypeCampaignsChanged})

	for i, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Tab != "" {
				t.Errorf("subscriber %d: tab = %q, want empty", i, ev.Tab)
			}
		case <-ctx.Done():
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(hub.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events := Subscribe(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"))
	waitForClients(t, hub, 1)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	waitForClients(t, hub, 0)
}

func TestBroadcastWithoutClients(t *testing.T) {
	NewHub().Broadcast(Event{Type: TypeCampaignsChanged})
}
