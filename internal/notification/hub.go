package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
)

// Hub fans events out to the SSE clients of this process. Clients join one
// or more rooms; an event reaches every client in any of its rooms once.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// Client is one subscribed stream.
type Client struct {
	rooms []string
	send  chan []byte
}

// C returns the channel events arrive on, JSON encoded.
func (c *Client) C() <-chan []byte { return c.send }

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Subscribe registers a client in the given rooms.
func (h *Hub) Subscribe(rooms ...string) *Client {
	c := &Client{rooms: rooms, send: make(chan []byte, 64)}
	h.mu.Lock()
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes a client from all its rooms and closes its channel.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
}

// ClientCount returns the number of distinct connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

// Deliver sends ev to the clients of its rooms. Clients whose buffer is
// full miss the event.
func (h *Hub) Deliver(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[notification.Hub] marshal %s: %v", ev.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := make(map[*Client]struct{})
	for _, room := range ev.Rooms() {
		for c := range h.rooms[room] {
			if _, dup := sent[c]; dup {
				continue
			}
			sent[c] = struct{}{}
			select {
			case c.send <- msg:
			default:
				// slow client, drop
			}
		}
	}
}

// Publish implements Publisher by delivering locally.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Deliver(ev)
	return nil
}

// ServeSSE streams the events of the given rooms as Server-Sent Events
// until the request context ends.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, rooms ...string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	c := h.Subscribe(rooms...)
	defer h.Unsubscribe(c)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			w.Write(msg)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
