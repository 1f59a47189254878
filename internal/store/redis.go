package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adi-253/burnroom/internal/models"
)

const tokenFieldPrefix = "token:"

// createScript refuses to overwrite a live room and clears any message list
// left behind under the same id.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('DEL', KEYS[2])
redis.call('HSET', KEYS[1], 'passcode', ARGV[1], 'createdAt', ARGV[2], 'connected', tostring(#ARGV - 3))
for i = 4, #ARGV do
  redis.call('HSET', KEYS[1], 'token:' .. ARGV[i], tostring(i - 3))
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// admitScript: -1 missing, -2 passcode mismatch, -3 full, otherwise new count.
var admitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local n = tonumber(redis.call('HGET', KEYS[1], 'connected') or '0')
if n >= tonumber(ARGV[3]) then
  return -3
end
if redis.call('HGET', KEYS[1], 'passcode') ~= ARGV[1] then
  return -2
end
n = n + 1
redis.call('HSET', KEYS[1], 'token:' .. ARGV[2], tostring(n), 'connected', tostring(n))
return n
`)

// appendScript pins the log expiry to the metadata's remaining lifetime.
// -1 means the room is gone and nothing was written.
var appendScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
  return -1
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('PEXPIRE', KEYS[2], ttl)
return ttl
`)

// Redis is a Store backed by a Redis server. Room metadata lives in the hash
// meta:{id} and the log in the list messages:{id}.
type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis:// URL.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisFromClient(redis.NewClient(opts)), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func metaKey(roomID string) string     { return "meta:" + roomID }
func messagesKey(roomID string) string { return "messages:" + roomID }

func (s *Redis) CreateRoom(ctx context.Context, room models.Room, ttl time.Duration) error {
	args := []any{room.Passcode, room.CreatedAt.UnixMilli(), ttl.Milliseconds()}
	for _, t := range room.ConnectedTokens {
		args = append(args, t)
	}
	created, err := createScript.Run(ctx, s.client, []string{metaKey(room.ID), messagesKey(room.ID)}, args...).Int64()
	if err != nil {
		return fmt.Errorf("redis create room: %w", err)
	}
	if created == 0 {
		return ErrRoomExists
	}
	return nil
}

func (s *Redis) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	fields, err := s.client.HGetAll(ctx, metaKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get room: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	room := &models.Room{ID: roomID, Passcode: fields["passcode"]}
	if ms, err := strconv.ParseInt(fields["createdAt"], 10, 64); err == nil {
		room.CreatedAt = time.UnixMilli(ms).UTC()
	}

	type admitted struct {
		token string
		order int
	}
	var tokens []admitted
	for field, value := range fields {
		token, ok := strings.CutPrefix(field, tokenFieldPrefix)
		if !ok {
			continue
		}
		order, _ := strconv.Atoi(value)
		tokens = append(tokens, admitted{token: token, order: order})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].order < tokens[j].order })
	room.ConnectedTokens = make([]string, 0, len(tokens))
	for _, t := range tokens {
		room.ConnectedTokens = append(room.ConnectedTokens, t.token)
	}
	return room, nil
}

func (s *Redis) Admit(ctx context.Context, roomID, passcode, token string, capacity int) (int, error) {
	n, err := admitScript.Run(ctx, s.client, []string{metaKey(roomID)}, passcode, token, capacity).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis admit: %w", err)
	}
	switch n {
	case -1:
		return 0, ErrRoomNotFound
	case -2:
		return 0, ErrPasscodeMismatch
	case -3:
		return capacity, ErrRoomFull
	}
	return int(n), nil
}

func (s *Redis) TTL(ctx context.Context, roomID string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, metaKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	// go-redis reports the -2 (missing) and -1 (no expiry) replies verbatim.
	if ttl == -2 {
		return 0, ErrRoomNotFound
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *Redis) AppendMessage(ctx context.Context, msg models.Message) (time.Duration, error) {
	record, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}
	ms, err := appendScript.Run(ctx, s.client, []string{metaKey(msg.RoomID), messagesKey(msg.RoomID)}, record).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis append message: %w", err)
	}
	if ms < 0 {
		return 0, ErrRoomNotFound
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *Redis) Messages(ctx context.Context, roomID string) ([]models.Message, error) {
	records, err := s.client.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages: %w", err)
	}
	out := make([]models.Message, 0, len(records))
	for _, record := range records {
		var msg models.Message
		if err := json.Unmarshal([]byte(record), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Redis) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	n, err := s.client.Del(ctx, metaKey(roomID), messagesKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete room: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
