package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/metrics"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/store"
)

// Authorization proves that a token was found in its room's admitted set.
// It can only be obtained from TokenAuthority.Authorize, so every room-scoped
// operation that takes one has already passed the gate.
type Authorization struct {
	roomID          string
	token           string
	connectedTokens []string
}

func (a *Authorization) RoomID() string { return a.roomID }

func (a *Authorization) Token() string { return a.token }

// ConnectedTokens is the admitted set as seen at authorization time.
func (a *Authorization) ConnectedTokens() []string {
	out := make([]string, len(a.connectedTokens))
	copy(out, a.connectedTokens)
	return out
}

// TokenAuthority mints tokens against a room passcode and validates them.
type TokenAuthority struct {
	store    store.Store
	events   Publisher
	capacity int
}

// NewTokenAuthority creates a TokenAuthority admitting at most capacity tokens per room.
func NewTokenAuthority(st store.Store, events Publisher, capacity int) *TokenAuthority {
	return &TokenAuthority{store: st, events: events, capacity: capacity}
}

// Verify exchanges a passcode for a fresh token. The capacity check happens
// before the passcode comparison, so a full room rejects every attempt.
// A non-empty username is announced to the room as a join event.
func (a *TokenAuthority) Verify(ctx context.Context, roomID, passcode, username string) (string, error) {
	if passcode == "" {
		return "", newError(CodeValidation, "passcode is required")
	}

	token, err := generateToken()
	if err != nil {
		return "", storageError("generate token", err)
	}

	count, err := a.store.Admit(ctx, roomID, passcode, token, a.capacity)
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		metrics.AdmissionsTotal.WithLabelValues("not_found").Inc()
		return "", ErrNotFound
	case errors.Is(err, store.ErrRoomFull):
		metrics.AdmissionsTotal.WithLabelValues("room_full").Inc()
		return "", ErrRoomFull
	case errors.Is(err, store.ErrPasscodeMismatch):
		metrics.AdmissionsTotal.WithLabelValues("invalid_passcode").Inc()
		return "", ErrInvalidPasscode
	case err != nil:
		return "", storageError("admit participant", err)
	}

	metrics.AdmissionsTotal.WithLabelValues("admitted").Inc()
	log.Debug().Str("room_id", roomID).Int("connected", count).Msg("participant admitted")

	if username != "" {
		publish(ctx, a.events, models.Event{
			Name:   models.EventJoin,
			RoomID: roomID,
			Data:   models.JoinPayload{Username: username},
		})
	}
	return token, nil
}

// Authorize is the single gate for room-scoped operations. A missing room is
// reported as Unauthorized since it has no admitted set to check against.
func (a *TokenAuthority) Authorize(ctx context.Context, roomID, token string) (*Authorization, error) {
	if roomID == "" || token == "" {
		return nil, ErrUnauthorized
	}
	room, err := a.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, storageError("load room", err)
	}
	if !room.HasToken(token) {
		return nil, ErrUnauthorized
	}
	return &Authorization{
		roomID:          room.ID,
		token:           token,
		connectedTokens: room.ConnectedTokens,
	}, nil
}

// generateToken returns 32 random bytes, hex encoded.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
