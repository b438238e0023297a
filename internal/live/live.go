package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/lotas/campaigndesk/internal/applog"
)

// TypeCampaignsChanged tells clients that a tab's listing changed.
const TypeCampaignsChanged = "campaigns.changed"

// Event is a message pushed by the hub. An empty Tab means every tab.
type Event struct {
	Type string `json:"type"`
	Tab  string `json:"tab,omitempty"`
	ID   string `json:"id,omitempty"` // campaign that changed, if known
}

// Hub fans events out to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]context.Context
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]context.Context)}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends ev to every client. Failed writes drop the client.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		applog.Error("live.encode", err)
		return
	}

	h.mu.Lock()
	conns := make(map[*websocket.Conn]context.Context, len(h.clients))
	for c, ctx := range h.clients {
		conns[c] = ctx
	}
	h.mu.Unlock()

	applog.Info("live.broadcast", "type", ev.Type, "tab", ev.Tab, "clients", len(conns))
	for c, ctx := range conns {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			applog.Error("live.send", err)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.CloseNow()
}

// Handler accepts websocket upgrades and holds each connection open
// until the client goes away.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("live.accept", err)
			return
		}

		ctx := r.Context()
		h.mu.Lock()
		h.clients[conn] = ctx
		h.mu.Unlock()
		applog.Info("live.connected", "remote", r.RemoteAddr)

		defer func() {
			h.drop(conn)
			applog.Info("live.disconnected", "remote", r.RemoteAddr)
		}()

		// Clients never send anything meaningful; reading keeps
		// control frames flowing and notices the close.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})
}

// Subscribe connects to a hub at url (ws:// or wss://) and delivers its
// events until ctx is done. Dropped connections are retried with
// backoff. The channel is closed when ctx is done.
func Subscribe(ctx context.Context, url string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		backoff := 500 * time.Millisecond
		for {
			connected, err := readEvents(ctx, url, events)
			if ctx.Err() != nil {
				return
			}
			if connected {
				backoff = 500 * time.Millisecond
			}
			applog.Warn("live.reconnect", "url", url, "in", backoff.String(), "reason", errString(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
	return events
}

func readEvents(ctx context.Context, url string, events chan<- Event) (connected bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()
	applog.Info("live.subscribed", "url", url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			applog.Error("live.parse", err)
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
