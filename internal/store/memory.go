package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/adi-253/burnroom/internal/models"
)

// Memory is an in-process Store. Metadata and log of a room share a single
// deadline, so their retention can never diverge.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	rooms map[string]*memoryRoom
}

type memoryRoom struct {
	room      models.Room
	messages  []models.Message
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:   time.Now,
		rooms: make(map[string]*memoryRoom),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// live returns the room if it exists and has not expired. Expired entries are
// dropped on the way. Callers must hold m.mu.
func (m *Memory) live(roomID string) (*memoryRoom, bool) {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, false
	}
	if !m.now().Before(r.expiresAt) {
		delete(m.rooms, roomID)
		return nil, false
	}
	return r, true
}

func (m *Memory) CreateRoom(_ context.Context, room models.Room, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(room.ID); ok {
		return ErrRoomExists
	}
	tokens := make([]string, len(room.ConnectedTokens))
	copy(tokens, room.ConnectedTokens)
	room.ConnectedTokens = tokens

	m.rooms[room.ID] = &memoryRoom{
		room:      room,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.live(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room := r.room
	room.ConnectedTokens = make([]string, len(r.room.ConnectedTokens))
	copy(room.ConnectedTokens, r.room.ConnectedTokens)
	return &room, nil
}

func (m *Memory) Admit(_ context.Context, roomID, passcode, token string, capacity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.live(roomID)
	if !ok {
		return 0, ErrRoomNotFound
	}
	if len(r.room.ConnectedTokens) >= capacity {
		return len(r.room.ConnectedTokens), ErrRoomFull
	}
	if len(passcode) != len(r.room.Passcode) ||
		subtle.ConstantTimeCompare([]byte(passcode), []byte(r.room.Passcode)) != 1 {
		return len(r.room.ConnectedTokens), ErrPasscodeMismatch
	}
	r.room.ConnectedTokens = append(r.room.ConnectedTokens, token)
	return len(r.room.ConnectedTokens), nil
}

func (m *Memory) TTL(_ context.Context, roomID string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.live(roomID)
	if !ok {
		return 0, ErrRoomNotFound
	}
	return r.expiresAt.Sub(m.now()), nil
}

func (m *Memory) AppendMessage(_ context.Context, msg models.Message) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.live(msg.RoomID)
	if !ok {
		return 0, ErrRoomNotFound
	}
	r.messages = append(r.messages, msg)
	return r.expiresAt.Sub(m.now()), nil
}

func (m *Memory) Messages(_ context.Context, roomID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.live(roomID)
	if !ok {
		return []models.Message{}, nil
	}
	out := make([]models.Message, len(r.messages))
	copy(out, r.messages)
	return out, nil
}

func (m *Memory) DeleteRoom(_ context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(roomID)
	delete(m.rooms, roomID)
	return ok, nil
}

// Sweep drops every expired room and returns how many were removed.
func (m *Memory) Sweep(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, r := range m.rooms {
		if !now.Before(r.expiresAt) {
			delete(m.rooms, id)
			removed++
		}
	}
	return removed
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
