package collaboration

import (
	"log"
	"sync"
)

// Hub tracks which clients are joined to which session room and fans
// broadcasts out to them. Room sets exist only while at least one client is
// joined; the last unregister drops the room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool // sessionID -> set of clients
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]bool),
	}
}

// Register adds a client to a session room after a completed join.
func (h *Hub) Register(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[*Client]bool)
	}
	h.rooms[sessionID][c] = true

	log.Printf("  Client %s joined room %s (total: %d)", c.ID, sessionID, len(h.rooms[sessionID]))
}

// Unregister removes a client from its room (if it ever joined one) and
// closes its send channel. Empty rooms are deleted.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.sessionID != "" {
		if room, ok := h.rooms[c.sessionID]; ok {
			if room[c] {
				delete(room, c)
				log.Printf("  Client %s left room %s (remaining: %d)", c.ID, c.sessionID, len(room))
			}
			if len(room) == 0 {
				delete(h.rooms, c.sessionID)
			}
		}
	}

	c.closeSend()
}

// Broadcast queues a message on every client in the session's room. A
// non-nil sender is skipped. Clients whose send buffer is full are evicted
// as slow or dead.
func (h *Hub) Broadcast(sessionID string, message []byte, sender *Client) {
	h.mu.RLock()
	var evicted []*Client
	for client := range h.rooms[sessionID] {
		if client == sender {
			continue
		}
		if !client.queue(message) {
			evicted = append(evicted, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range evicted {
		log.Printf("⚠️  Client %s send buffer full, dropping connection", client.ID)
		h.Unregister(client)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// RoomSize returns the number of clients currently joined to a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[sessionID])
}

// Shutdown closes every connected client. Used on graceful server stop.
func (h *Hub) Shutdown() {
	log.Println("🛑 Shutting down collaboration hub...")

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		for client := range room {
			client.closeSend()
			if client.conn != nil {
				client.conn.Close()
			}
		}
	}
	h.rooms = make(map[string]map[*Client]bool)

	log.Println("✓ Collaboration hub shutdown complete")
}
