package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Named(name string) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, ev := range p.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	clock    *testClock
	store    *store.Memory
	events   *recordingPublisher
	rooms    *RoomService
	tokens   *TokenAuthority
	messages *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemory(store.WithClock(clock.Now))
	events := &recordingPublisher{}
	return &fixture{
		clock:    clock,
		store:    st,
		events:   events,
		rooms:    NewRoomService(st, events, 10*time.Minute),
		tokens:   NewTokenAuthority(st, events, 50),
		messages: NewMessageService(st, events),
	}
}

// createRoom creates a room and returns it with the creator's authorization.
func (f *fixture) createRoom(t *testing.T) (*models.Room, *Authorization) {
	t.Helper()
	ctx := context.Background()
	room, token, err := f.rooms.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	auth, err := f.tokens.Authorize(ctx, room.ID, token)
	if err != nil {
		t.Fatalf("authorize creator: %v", err)
	}
	return room, auth
}

// join verifies with the room passcode and returns the new participant's authorization.
func (f *fixture) join(t *testing.T, room *models.Room) *Authorization {
	t.Helper()
	ctx := context.Background()
	token, err := f.tokens.Verify(ctx, room.ID, room.Passcode, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	auth, err := f.tokens.Authorize(ctx, room.ID, token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return auth
}
