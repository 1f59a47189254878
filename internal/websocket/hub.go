package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/metrics"
	"github.com/adi-253/burnroom/internal/models"
)

var ErrHubStopped = errors.New("websocket: hub stopped")

// Hub maintains the set of subscribers per room and fans room events out to them.
// All map mutations happen on the Run goroutine.
type Hub struct {
	// rooms maps roomID to a set of clients in that room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// stopChan is closed by Stop
	stopChan chan struct{}
	stopOnce sync.Once

	// mu guards rooms for readers outside Run
	mu sync.RWMutex
}

// BroadcastMessage is one encoded event for a room. When Close is set every
// subscriber of the room is disconnected after the event is queued.
type BroadcastMessage struct {
	RoomID  string
	Message []byte
	Close   bool
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 64),
		stopChan:   make(chan struct{}),
	}
}

// Run starts the hub's main event loop until Stop is called.
// This should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)

		case <-h.stopChan:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and disconnects every subscriber.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// Publish encodes ev and queues it for the room's subscribers. It only blocks
// while the queue is full.
func (h *Hub) Publish(ctx context.Context, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &BroadcastMessage{
		RoomID:  ev.RoomID,
		Message: data,
		Close:   ev.Name == models.EventDestroy,
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopChan:
		return ErrHubStopped
	}
}

// RoomIDs returns the rooms that currently have subscribers.
func (h *Hub) RoomIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetRoomClientCount returns the number of connected clients in a room
func (h *Hub) GetRoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[*Client]bool)
	}
	h.rooms[client.RoomID][client] = true
	metrics.WSConnections.Inc()

	log.Debug().Str("room_id", client.RoomID).Int("subscribers", len(h.rooms[client.RoomID])).Msg("subscriber joined")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(client) {
		log.Debug().Str("room_id", client.RoomID).Int("subscribers", len(h.rooms[client.RoomID])).Msg("subscriber left")
	}
}

// removeLocked drops client and closes its send channel. Callers hold h.mu.
func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.rooms[client.RoomID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)
	metrics.WSConnections.Dec()
	if len(clients) == 0 {
		delete(h.rooms, client.RoomID)
	}
	return true
}

func (h *Hub) broadcastToRoom(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.rooms[msg.RoomID]
	sent := 0
	for client := range clients {
		select {
		case client.send <- msg.Message:
			sent++
		default:
			// Client's buffer is full, drop it
			h.removeLocked(client)
		}
	}

	if msg.Close {
		for client := range h.rooms[msg.RoomID] {
			h.removeLocked(client)
		}
	}
	log.Debug().Str("room_id", msg.RoomID).Int("delivered", sent).Bool("closed", msg.Close).Msg("broadcast")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}
