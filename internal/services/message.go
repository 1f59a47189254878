package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/metrics"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/store"
)

// MaxTextLength is the longest accepted message text, in code points.
const MaxTextLength = 1000

// MessageService is the append-only message log of each room.
// Messages expire together with their room.
type MessageService struct {
	store  store.Store
	events Publisher
}

// NewMessageService creates a new MessageService instance
func NewMessageService(st store.Store, events Publisher) *MessageService {
	return &MessageService{store: st, events: events}
}

// Append validates and stores a message, then broadcasts it. Sender and text
// are stored exactly as sent; only empty values are rejected. The room's
// existence is re-checked atomically with the write, so a room destroyed after
// authorization yields NotFound and nothing is recreated.
func (s *MessageService) Append(ctx context.Context, auth *Authorization, sender, text string) (*models.Message, error) {
	if sender == "" {
		return nil, newError(CodeValidation, "sender is required")
	}
	if text == "" {
		return nil, newError(CodeValidation, "text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, newError(CodeValidation, "text exceeds 1000 characters")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, storageError("generate message id", err)
	}
	msg := models.Message{
		ID:        id.String(),
		RoomID:    auth.RoomID(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Token:     auth.Token(),
	}

	remaining, err := s.store.AppendMessage(ctx, msg)
	if errors.Is(err, store.ErrRoomNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageError("append message", err)
	}

	metrics.MessagesAppendedTotal.Inc()
	log.Debug().Str("room_id", msg.RoomID).Str("message_id", msg.ID).Dur("log_ttl", remaining).Msg("message appended")

	publish(ctx, s.events, models.Event{
		Name:   models.EventMessage,
		RoomID: msg.RoomID,
		Data: models.MessagePayload{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
			RoomID:    msg.RoomID,
		},
	})
	return &msg, nil
}

// List returns the room's log in insertion order, sanitized for the caller.
func (s *MessageService) List(ctx context.Context, auth *Authorization) ([]models.MessageView, error) {
	msgs, err := s.store.Messages(ctx, auth.RoomID())
	if err != nil {
		return nil, storageError("list messages", err)
	}
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, m.View(auth.Token()))
	}
	return views, nil
}

// Typing broadcasts a typing indicator. Nothing is persisted.
func (s *MessageService) Typing(ctx context.Context, auth *Authorization, sender string, isTyping bool) error {
	if sender == "" {
		return newError(CodeValidation, "sender is required")
	}
	publish(ctx, s.events, models.Event{
		Name:   models.EventTyping,
		RoomID: auth.RoomID(),
		Data:   models.TypingPayload{Sender: sender, IsTyping: isTyping},
	})
	return nil
}
