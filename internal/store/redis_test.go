package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisHarness(t *testing.T) (Store, func(time.Duration)) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr.FastForward
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, newRedisHarness)
}

func TestRedisLogExpiryMatchesMetadata(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), 10*time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(90 * time.Second)
	if _, err := s.AppendMessage(ctx, newMessage("r1", "m1", "hi")); err != nil {
		t.Fatalf("append: %v", err)
	}

	meta := mr.TTL(metaKey("r1"))
	log := mr.TTL(messagesKey("r1"))
	if meta != log {
		t.Fatalf("log ttl %v diverged from metadata ttl %v", log, meta)
	}
	if meta != 510*time.Second {
		t.Fatalf("expected 8m30s remaining, got %v", meta)
	}
}

func TestRedisCreateClearsStaleLog(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()
	ctx := context.Background()

	if _, err := mr.RPush(messagesKey("r1"), `{"id":"stale"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.CreateRoom(ctx, newRoom("r1", "123456", "creator"), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if mr.Exists(messagesKey("r1")) {
		t.Fatal("expected stale message list to be removed on create")
	}
}
