package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/services"
	"github.com/adi-253/burnroom/internal/store"
)

type harness struct {
	hub    *Hub
	server *httptest.Server
	rooms  *services.RoomService
	auth   *services.Authorization
	roomID string
}

// newHarness serves ServeWS behind a stand-in gate that authorizes the
// creator of a fresh room.
func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemory()
	rooms := services.NewRoomService(st, nil, 10*time.Minute)
	tokens := services.NewTokenAuthority(st, nil, 50)

	ctx := context.Background()
	room, token, err := rooms.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	a, err := tokens.Authorize(ctx, room.ID, token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := NewHandler(hub, rooms, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("anonymous") == "" {
			r = r.WithContext(auth.WithAuthorization(r.Context(), a))
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)

	return &harness{hub: hub, server: srv, rooms: rooms, auth: a, roomID: room.ID}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	h.waitForClients(t, 1)
	return conn
}

func (h *harness) waitForClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.hub.GetRoomClientCount(h.roomID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, h.hub.GetRoomClientCount(h.roomID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev map[string]any
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestPublishDeliversToRoomSubscribers(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	if ids := h.hub.RoomIDs(); len(ids) != 1 || ids[0] != h.roomID {
		t.Fatalf("unexpected subscribed rooms: %v", ids)
	}

	ctx := context.Background()
	if err := h.hub.Publish(ctx, models.Event{Name: models.EventMessage, RoomID: "other-room", Data: "ignored"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	err := h.hub.Publish(ctx, models.Event{
		Name:   models.EventTyping,
		RoomID: h.roomID,
		Data:   models.TypingPayload{Sender: "alice", IsTyping: true},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := readEvent(t, conn)
	if ev["event"] != models.EventTyping || ev["roomId"] != h.roomID {
		t.Fatalf("unexpected event: %v", ev)
	}
	data := ev["data"].(map[string]any)
	if data["sender"] != "alice" || data["isTyping"] != true {
		t.Fatalf("unexpected payload: %v", data)
	}
}

func TestDestroyClosesSubscribers(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	err := h.hub.Publish(context.Background(), models.Event{
		Name:   models.EventDestroy,
		RoomID: h.roomID,
		Data:   models.DestroyPayload{IsDestroyed: true, Reason: models.DestroyReasonDestroyed},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := readEvent(t, conn)
	if ev["event"] != models.EventDestroy {
		t.Fatalf("expected destroy, got %v", ev)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close after destroy, got %v", err)
	}
	h.waitForClients(t, 0)
	if ids := h.hub.RoomIDs(); len(ids) != 0 {
		t.Fatalf("room still tracked: %v", ids)
	}
}

func TestSubscriberToDestroyedRoomIsClosed(t *testing.T) {
	h := newHarness(t)

	// The gate has already passed when the room goes away.
	if err := h.rooms.Destroy(context.Background(), h.auth); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	h.waitForClients(t, 0)
	if ids := h.hub.RoomIDs(); len(ids) != 0 {
		t.Fatalf("room still tracked: %v", ids)
	}
}

func TestServeWSRequiresAuthorization(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?anonymous=1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestPublishAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	// fill the queue so the stop branch is the only one left
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = hub.Publish(ctx, models.Event{Name: models.EventTyping, RoomID: "r"})
	}
	if err != ErrHubStopped {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"same host", nil, "http://example.test", true},
		{"foreign rejected", nil, "http://evil.test", false},
		{"listed", []string{"http://app.test"}, "http://app.test", true},
		{"wildcard", []string{"*"}, "http://evil.test", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.test/room/x/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(tt.allowed)(r); got != tt.want {
				t.Fatalf("checkOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}
