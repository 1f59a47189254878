package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/metrics"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/store"
)

const createAttempts = 5

var passcodeSpace = big.NewInt(1_000_000)

// RoomService owns the room lifecycle: creation with a fixed lifetime,
// metadata reads for admitted participants and explicit destruction.
// Lifetimes are never extended.
type RoomService struct {
	store  store.Store
	events Publisher
	ttl    time.Duration
}

// NewRoomService creates a RoomService whose rooms live for ttl.
func NewRoomService(st store.Store, events Publisher, ttl time.Duration) *RoomService {
	return &RoomService{store: st, events: events, ttl: ttl}
}

// CreateRoom allocates a room id, a passcode and the creator's token, and
// persists the room with the creator already admitted.
func (s *RoomService) CreateRoom(ctx context.Context) (*models.Room, string, error) {
	passcode, err := generatePasscode()
	if err != nil {
		return nil, "", storageError("generate passcode", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, "", storageError("generate token", err)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		roomID, err := generateRoomID()
		if err != nil {
			return nil, "", storageError("generate room id", err)
		}

		room := models.Room{
			ID:              roomID,
			Passcode:        passcode,
			CreatedAt:       time.Now().UTC(),
			ConnectedTokens: []string{token},
		}
		err = s.store.CreateRoom(ctx, room, s.ttl)
		if errors.Is(err, store.ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, "", storageError("create room", err)
		}

		metrics.RoomsCreatedTotal.Inc()
		log.Info().Str("room_id", roomID).Dur("ttl", s.ttl).Msg("room created")
		return &room, token, nil
	}
	return nil, "", storageError("create room", fmt.Errorf("no free room id after %d attempts", createAttempts))
}

// Info returns the room metadata to an admitted participant.
func (s *RoomService) Info(ctx context.Context, auth *Authorization) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, auth.RoomID())
	if errors.Is(err, store.ErrRoomNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageError("load room", err)
	}
	return room, nil
}

// RemainingTTL returns the live remaining lifetime in whole seconds, rounded
// up so it only reaches zero at expiry. A room that vanished reports zero.
func (s *RoomService) RemainingTTL(ctx context.Context, auth *Authorization) (int64, error) {
	ttl, err := s.store.TTL(ctx, auth.RoomID())
	if errors.Is(err, store.ErrRoomNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storageError("read ttl", err)
	}
	return ceilSeconds(ttl), nil
}

// Exists reports whether the room's metadata is still live.
func (s *RoomService) Exists(ctx context.Context, roomID string) (bool, error) {
	_, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("load room", err)
	}
	return true, nil
}

// Destroy removes metadata and log together. It is idempotent; only the call
// that actually removed the room notifies subscribers.
func (s *RoomService) Destroy(ctx context.Context, auth *Authorization) error {
	existed, err := s.store.DeleteRoom(ctx, auth.RoomID())
	if err != nil {
		return storageError("delete room", err)
	}
	if !existed {
		return nil
	}

	metrics.RoomsDestroyedTotal.WithLabelValues(models.DestroyReasonDestroyed).Inc()
	log.Info().Str("room_id", auth.RoomID()).Msg("room destroyed")

	publish(ctx, s.events, models.Event{
		Name:   models.EventDestroy,
		RoomID: auth.RoomID(),
		Data:   models.DestroyPayload{IsDestroyed: true, Reason: models.DestroyReasonDestroyed},
	})
	return nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// generateRoomID creates a short, URL-friendly room identifier.
func generateRoomID() (string, error) {
	b := make([]byte, 8) // 16 hex characters
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generatePasscode draws uniformly from 000000-999999.
func generatePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, passcodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
