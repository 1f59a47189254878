package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/handlers"
	"github.com/adi-253/burnroom/internal/services"
)

// RoomChecker reports whether a room's metadata is live.
type RoomChecker interface {
	Exists(ctx context.Context, roomID string) (bool, error)
}

// Handler upgrades authorized requests to room event subscriptions.
type Handler struct {
	hub      *Hub
	rooms    RoomChecker
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. Cross-origin upgrades are only
// accepted from allowedOrigins ("*" allows any).
func NewHandler(hub *Hub, rooms RoomChecker, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// ServeWS handles GET /room/{id}/events
// The gate has already authorized the caller for the room.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	a, ok := auth.FromContext(r.Context())
	if !ok {
		handlers.WriteError(w, services.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room_id", a.RoomID()).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, a.RoomID())
	select {
	case h.hub.register <- client:
	case <-h.hub.stopChan:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	// A destroy may have been broadcast between the gate and registration.
	// Such a subscriber would never hear it, so close it now.
	if exists, err := h.rooms.Exists(r.Context(), a.RoomID()); err == nil && !exists {
		log.Debug().Str("room_id", a.RoomID()).Msg("room gone before subscription, closing")
		select {
		case h.hub.unregister <- client:
		case <-h.hub.stopChan:
		}
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}
