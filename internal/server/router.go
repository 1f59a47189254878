package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/config"
	"github.com/adi-253/burnroom/internal/handlers"
	"github.com/adi-253/burnroom/internal/middleware"
	"github.com/adi-253/burnroom/internal/services"
	"github.com/adi-253/burnroom/internal/store"
	"github.com/adi-253/burnroom/internal/websocket"
)

// NewRouter wires services, handlers and middleware over the given store.
// Events are published through hub, which must be running.
func NewRouter(cfg *config.Config, st store.Store, hub *websocket.Hub) http.Handler {
	carrier := auth.CookieCarrier{Secure: cfg.IsProduction()}

	roomService := services.NewRoomService(st, hub, cfg.RoomTTL)
	tokenAuthority := services.NewTokenAuthority(st, hub, cfg.RoomCapacity)
	messageService := services.NewMessageService(st, hub)

	roomHandler := handlers.NewRoomHandler(roomService, tokenAuthority, carrier)
	messageHandler := handlers.NewMessageHandler(messageService)
	wsHandler := websocket.NewHandler(hub, roomService, cfg.CORSOrigins)
	gate := middleware.NewGatekeeper(roomService, tokenAuthority, carrier)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.RequestSize(cfg.MaxBodyBytes))
	r.Use(gate.Middleware)

	r.Get("/health", handlers.HealthCheck(st))
	r.Handle("/metrics", promhttp.Handler())

	// Keyed on the connection address unless proxy headers are trusted above.
	createLimit := httprate.Limit(
		cfg.CreateRoomLimit,
		cfg.CreateRoomWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			handlers.WriteError(w, services.ErrRateLimited)
		}),
	)

	r.Route("/room", func(r chi.Router) {
		r.With(createLimit).Post("/", roomHandler.CreateRoom)
		r.Post("/{id}/verify", roomHandler.Verify)

		// Everything below is behind the gate
		r.Delete("/{id}", roomHandler.Destroy)
		r.Get("/{id}/info", roomHandler.GetInfo)
		r.Get("/{id}/ttl", roomHandler.GetTTL)
		r.Get("/{id}/messages", messageHandler.GetMessages)
		r.Post("/{id}/messages", messageHandler.SendMessage)
		r.Post("/{id}/typing", messageHandler.Typing)
		r.Get("/{id}/events", wsHandler.ServeWS)
	})

	return r
}

// corsOrigins defaults to local frontends during development.
func corsOrigins(configured []string) []string {
	var origins []string
	for _, o := range configured {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:5173", "http://localhost:3000"}
	}
	return origins
}
