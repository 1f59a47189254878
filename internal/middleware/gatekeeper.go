package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/handlers"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/services"
)

const (
	lobbyPath        = "/room"
	roomNotFoundPath = "/room?error=room-not-found"
)

// RoomChecker reports whether a room's metadata is live.
type RoomChecker interface {
	Exists(ctx context.Context, roomID string) (bool, error)
}

// Authorizer validates a token against a room's admitted set.
type Authorizer interface {
	Authorize(ctx context.Context, roomID, token string) (*services.Authorization, error)
}

// Gatekeeper guards every room-scoped path. Requests that pass carry their
// Authorization on the context.
type Gatekeeper struct {
	rooms   RoomChecker
	tokens  Authorizer
	carrier auth.Carrier
}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper(rooms RoomChecker, tokens Authorizer, carrier auth.Carrier) *Gatekeeper {
	return &Gatekeeper{rooms: rooms, tokens: tokens, carrier: carrier}
}

// Middleware applies the gate in front of next.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID, gated := classify(r.URL.Path)
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		exists, err := g.rooms.Exists(r.Context(), roomID)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		if !exists {
			reject(w, r, roomNotFoundPath)
			return
		}

		a, err := g.tokens.Authorize(r.Context(), roomID, g.carrier.Extract(r))
		if errors.Is(err, services.ErrUnauthorized) {
			reject(w, r, "/room/"+roomID+"/verify")
			return
		}
		if err != nil {
			handlers.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAuthorization(r.Context(), a)))
	})
}

// classify returns the room addressed by path and whether it must be gated.
// The lobby and a room's verify entry point are open.
func classify(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, lobbyPath+"/")
	if !ok {
		return "", false
	}
	roomID, sub, _ := strings.Cut(strings.TrimSuffix(rest, "/"), "/")
	if roomID == "" {
		return "", false
	}
	if sub == "verify" {
		return roomID, false
	}
	return roomID, true
}

// reject sends navigations to the re-entry page and gives API callers a 401
// naming the same target.
func reject(w http.ResponseWriter, r *http.Request, target string) {
	if isNavigation(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	handlers.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{
		Error:    services.ErrUnauthorized.Message,
		Code:     string(services.CodeUnauthorized),
		Redirect: target,
	})
}

func isNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}
