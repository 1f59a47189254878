package services

import (
	"context"
	"testing"
	"time"

	"github.com/adi-253/burnroom/internal/models"
)

type staticRooms []string

func (s staticRooms) RoomIDs() []string { return s }

func TestCleanupReportsExpiredSubscribedRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	short, _ := f.createRoom(t)
	f.clock.Advance(5 * time.Minute)
	long, _ := f.createRoom(t)
	f.clock.Advance(6 * time.Minute)

	svc := NewCleanupService(f.store, staticRooms{short.ID, long.ID}, f.events, time.Second)
	if n := svc.cleanup(ctx); n != 1 {
		t.Fatalf("expected 1 expired room, got %d", n)
	}

	destroyed := f.events.Named(models.EventDestroy)
	if len(destroyed) != 1 {
		t.Fatalf("expected one destroy event, got %d", len(destroyed))
	}
	if destroyed[0].RoomID != short.ID {
		t.Fatalf("destroy published for %q, want %q", destroyed[0].RoomID, short.ID)
	}
	if p := destroyed[0].Data.(models.DestroyPayload); p.Reason != models.DestroyReasonExpired || !p.IsDestroyed {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if exists, _ := f.rooms.Exists(ctx, long.ID); !exists {
		t.Fatal("live room must not be touched")
	}
}

func TestCleanupStartStop(t *testing.T) {
	f := newFixture(t)
	svc := NewCleanupService(f.store, staticRooms{}, f.events, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Start()
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop")
	}
}
