package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by the room store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthCheck returns the handler for GET /health.
// It reports 503 when the room store does not answer.
func HealthCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: store unreachable")
			WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "degraded",
				Message: "room store unreachable",
			})
			return
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "burnroom is running",
		})
	}
}
