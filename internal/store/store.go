// Package store holds room metadata and message logs in an expiring
// key-value backend. Every method is atomic against the backend, which is the
// single serialization point shared by all request handlers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/adi-253/burnroom/internal/models"
)

var (
	// ErrRoomNotFound is returned when a room is absent or has expired.
	ErrRoomNotFound = errors.New("store: room not found")

	// ErrRoomExists is returned by CreateRoom when the id is already taken.
	ErrRoomExists = errors.New("store: room already exists")

	// ErrPasscodeMismatch is returned by Admit for a wrong passcode.
	ErrPasscodeMismatch = errors.New("store: passcode mismatch")

	// ErrRoomFull is returned by Admit when the room is at capacity.
	ErrRoomFull = errors.New("store: room full")
)

// Store is the contract the room core needs from the shared backend.
type Store interface {
	// CreateRoom persists room metadata with the given lifetime. It fails with
	// ErrRoomExists when the id is already taken.
	CreateRoom(ctx context.Context, room models.Room, ttl time.Duration) error

	// GetRoom returns metadata and admitted tokens, or ErrRoomNotFound.
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)

	// Admit checks capacity and passcode and adds token to the admitted set in
	// a single step. It returns the new admitted count.
	Admit(ctx context.Context, roomID, passcode, token string, capacity int) (int, error)

	// TTL returns the live remaining lifetime of the room metadata.
	TTL(ctx context.Context, roomID string) (time.Duration, error)

	// AppendMessage pushes msg to its room's log and pins the log expiry to the
	// metadata's current remaining lifetime. Nothing is written when the room
	// is gone. It returns the pinned lifetime.
	AppendMessage(ctx context.Context, msg models.Message) (time.Duration, error)

	// Messages returns a snapshot of the log in insertion order.
	Messages(ctx context.Context, roomID string) ([]models.Message, error)

	// DeleteRoom removes metadata and log together and reports whether
	// anything existed.
	DeleteRoom(ctx context.Context, roomID string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by backends without native key expiry.
type Sweeper interface {
	Sweep(ctx context.Context) int
}
