package handlers

import (
	"net/http"

	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/services"
)

// MessageHandler contains HTTP handlers for message operations.
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler creates a new MessageHandler instance.
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// SendMessage handles POST /room/{id}/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.messages.Append(r.Context(), a, req.Sender, req.Text); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// GetMessages handles GET /room/{id}/messages
// Each message only says whether it was posted with the caller's token.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.List(r.Context(), a)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.GetMessagesResponse{Messages: msgs})
}

// Typing handles POST /room/{id}/typing
func (h *MessageHandler) Typing(w http.ResponseWriter, r *http.Request) {
	a, ok := authorization(w, r)
	if !ok {
		return
	}

	var req models.TypingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.messages.Typing(r.Context(), a, req.Sender, req.IsTyping); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
