package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/services"
)

// RoomHandler contains HTTP handlers for room operations.
type RoomHandler struct {
	rooms   *services.RoomService
	tokens  *services.TokenAuthority
	carrier auth.Carrier
}

// NewRoomHandler creates a new RoomHandler instance.
func NewRoomHandler(rooms *services.RoomService, tokens *services.TokenAuthority, carrier auth.Carrier) *RoomHandler {
	return &RoomHandler{rooms: rooms, tokens: tokens, carrier: carrier}
}

// CreateRoom handles POST /room and answers 201 Created.
// The creator's token is set as a cookie; the body only carries id and passcode.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	room, token, err := h.rooms.CreateRoom(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	h.carrier.Issue(w, token)
	WriteJSON(w, http.StatusCreated, models.CreateRoomResponse{
		RoomID:   room.ID,
		Passcode: room.Passcode,
	})
}

// Verify handles POST /room/{id}/verify
func (h *RoomHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	token, err := h.tokens.Verify(r.Context(), chi.URLParam(r, "id"), req.Passcode, req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.carrier.Issue(w, token)
	WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// GetInfo handles GET /room/{id}/info
func (h *RoomHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	room, err := h.rooms.Info(r.Context(), a)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.RoomInfoResponse{RoomID: room.ID, Passcode: room.Passcode})
}

// GetTTL handles GET /room/{id}/ttl
func (h *RoomHandler) GetTTL(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	ttl, err := h.rooms.RemainingTTL(r.Context(), a)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.TTLResponse{TTL: ttl})
}

// Destroy handles DELETE /room/{id}
func (h *RoomHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	if err := h.rooms.Destroy(r.Context(), a); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// authorization returns the gate's result for this request, writing a 401 when
// the handler was reached without one.
func authorization(w http.ResponseWriter, r *http.Request) (*services.Authorization, bool) {
	a, ok := auth.FromContext(r.Context())
	if !ok {
		WriteError(w, services.ErrUnauthorized)
		return nil, false
	}
	return a, true
}
