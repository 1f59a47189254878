package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adi-253/burnroom/internal/models"
)

// harness builds a fresh store plus a function that moves its notion of time forward.
type harness func(t *testing.T) (Store, func(time.Duration))

func runStoreSuite(t *testing.T, newStore harness) {
	t.Run("create and get", func(t *testing.T) {
		s, _ := newStore(t)
		ctx := context.Background()
		room := newRoom("r1", "048213", "creator")

		if err := s.CreateRoom(ctx, room, 10*time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.GetRoom(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Passcode != "048213" {
			t.Fatalf("expected passcode 048213, got %q", got.Passcode)
		}
		if len(got.ConnectedTokens) != 1 || got.ConnectedTokens[0] != "creator" {
			t.Fatalf("unexpected tokens: %v", got.ConnectedTokens)
		}
		if !got.CreatedAt.Equal(room.CreatedAt) {
			t.Fatalf("createdAt mismatch: %v vs %v", got.CreatedAt, room.CreatedAt)
		}
		if err := s.CreateRoom(ctx, newRoom("r1", "111111", "other"), time.Minute); !errors.Is(err, ErrRoomExists) {
			t.Fatalf("expected ErrRoomExists, got %v", err)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		s, _ := newStore(t)
		ctx := context.Background()
		if _, err := s.GetRoom(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("get: expected ErrRoomNotFound, got %v", err)
		}
		if _, err := s.TTL(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("ttl: expected ErrRoomNotFound, got %v", err)
		}
		if _, err := s.Admit(ctx, "nope", "000000", "t", 50); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("admit: expected ErrRoomNotFound, got %v", err)
		}
		msgs, err := s.Messages(ctx, "nope")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("expected no messages, got %d", len(msgs))
		}
	})

	t.Run("admit checks capacity before passcode", func(t *testing.T) {
		s, _ := newStore(t)
		ctx := context.Background()
		if err := s.CreateRoom(ctx, newRoom("r1", "000042", "creator"), time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}

		if _, err := s.Admit(ctx, "r1", "42", "bad", 3); !errors.Is(err, ErrPasscodeMismatch) {
			t.Fatalf("expected ErrPasscodeMismatch for numeric-equal passcode, got %v", err)
		}
		for i, token := range []string{"a", "b"} {
			n, err := s.Admit(ctx, "r1", "000042", token, 3)
			if err != nil {
				t.Fatalf("admit %s: %v", token, err)
			}
			if n != i+2 {
				t.Fatalf("expected count %d, got %d", i+2, n)
			}
		}
		if _, err := s.Admit(ctx, "r1", "000042", "c", 3); !errors.Is(err, ErrRoomFull) {
			t.Fatalf("expected ErrRoomFull, got %v", err)
		}
		if _, err := s.Admit(ctx, "r1", "999999", "d", 3); !errors.Is(err, ErrRoomFull) {
			t.Fatalf("expected ErrRoomFull with wrong passcode, got %v", err)
		}

		got, err := s.GetRoom(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		want := []string{"creator", "a", "b"}
		if fmt.Sprint(got.ConnectedTokens) != fmt.Sprint(want) {
			t.Fatalf("expected tokens %v, got %v", want, got.ConnectedTokens)
		}
	})

	t.Run("concurrent admissions respect capacity", func(t *testing.T) {
		s, _ := newStore(t)
		ctx := context.Background()
		if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}

		var admitted, full atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 80; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Admit(ctx, "r1", "123456", fmt.Sprintf("tok-%d", i), 50)
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, ErrRoomFull):
					full.Add(1)
				default:
					t.Errorf("admit %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		if admitted.Load() != 49 {
			t.Fatalf("expected 49 admissions, got %d", admitted.Load())
		}
		if full.Load() != 31 {
			t.Fatalf("expected 31 rejections, got %d", full.Load())
		}
		got, err := s.GetRoom(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.ConnectedTokens) != 50 {
			t.Fatalf("expected 50 tokens, got %d", len(got.ConnectedTokens))
		}
	})

	t.Run("ttl decreases and room expires", func(t *testing.T) {
		s, advance := newStore(t)
		ctx := context.Background()
		if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), 10*time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}

		ttl, err := s.TTL(ctx, "r1")
		if err != nil {
			t.Fatalf("ttl: %v", err)
		}
		if ttl != 10*time.Minute {
			t.Fatalf("expected 10m, got %v", ttl)
		}

		advance(4 * time.Minute)
		ttl, err = s.TTL(ctx, "r1")
		if err != nil {
			t.Fatalf("ttl: %v", err)
		}
		if ttl != 6*time.Minute {
			t.Fatalf("expected 6m, got %v", ttl)
		}

		advance(6 * time.Minute)
		if _, err := s.TTL(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected expiry, got %v", err)
		}
		if _, err := s.GetRoom(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound after expiry, got %v", err)
		}
	})

	t.Run("append pins log to remaining lifetime", func(t *testing.T) {
		s, advance := newStore(t)
		ctx := context.Background()
		if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), 10*time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}

		advance(3 * time.Minute)
		pinned, err := s.AppendMessage(ctx, newMessage("r1", "m1", "first"))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if pinned != 7*time.Minute {
			t.Fatalf("expected log pinned to 7m, got %v", pinned)
		}
		if _, err := s.AppendMessage(ctx, newMessage("r1", "m2", "second")); err != nil {
			t.Fatalf("append: %v", err)
		}

		msgs, err := s.Messages(ctx, "r1")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
			t.Fatalf("unexpected order: %+v", msgs)
		}
		if msgs[0].Token != "creator" {
			t.Fatalf("expected issuing token to be stored, got %q", msgs[0].Token)
		}

		advance(7 * time.Minute)
		msgs, err = s.Messages(ctx, "r1")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("expected log to expire with the room, got %d messages", len(msgs))
		}
	})

	t.Run("delete is idempotent and append does not resurrect", func(t *testing.T) {
		s, _ := newStore(t)
		ctx := context.Background()
		if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), time.Minute); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.AppendMessage(ctx, newMessage("r1", "m1", "hi")); err != nil {
			t.Fatalf("append: %v", err)
		}

		existed, err := s.DeleteRoom(ctx, "r1")
		if err != nil || !existed {
			t.Fatalf("first delete: existed=%v err=%v", existed, err)
		}
		existed, err = s.DeleteRoom(ctx, "r1")
		if err != nil || existed {
			t.Fatalf("second delete: existed=%v err=%v", existed, err)
		}

		if _, err := s.AppendMessage(ctx, newMessage("r1", "m2", "late")); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
		if _, err := s.GetRoom(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("room was resurrected: %v", err)
		}
		msgs, err := s.Messages(ctx, "r1")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("expected empty log, got %d", len(msgs))
		}
	})
}

func newRoom(id, passcode, creator string) models.Room {
	return models.Room{
		ID:              id,
		Passcode:        passcode,
		CreatedAt:       time.UnixMilli(1_700_000_000_000).UTC(),
		ConnectedTokens: []string{creator},
	}
}

func newMessage(roomID, id, text string) models.Message {
	return models.Message{
		ID:        id,
		RoomID:    roomID,
		Sender:    "alice",
		Text:      text,
		Timestamp: time.UnixMilli(1_700_000_000_000).UTC(),
		Token:     "creator",
	}
}
