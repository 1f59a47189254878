package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/metrics"
	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/store"
)

// RoomLister reports the rooms that currently have live subscribers.
type RoomLister interface {
	RoomIDs() []string
}

// CleanupService notices rooms that expired passively and tells their
// subscribers. Expiry itself is owned by the store; this only reports it.
type CleanupService struct {
	store    store.Store
	rooms    RoomLister
	events   Publisher
	interval time.Duration
	stopChan chan struct{}
}

// NewCleanupService creates a new cleanup service ticking every interval.
func NewCleanupService(st store.Store, rooms RoomLister, events Publisher, interval time.Duration) *CleanupService {
	return &CleanupService{
		store:    st,
		rooms:    rooms,
		events:   events,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the background worker until Stop is called.
// It should be called with 'go'.
func (s *CleanupService) Start() {
	log.Info().Dur("interval", s.interval).Msg("cleanup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.cleanup(ctx)
			cancel()
		case <-s.stopChan:
			log.Info().Msg("cleanup service stopped")
			return
		}
	}
}

// Stop gracefully shuts down the cleanup service.
func (s *CleanupService) Stop() {
	close(s.stopChan)
}

// cleanup sweeps backends without native expiry, then publishes an expired
// destroy event for every subscribed room whose metadata is gone.
func (s *CleanupService) cleanup(ctx context.Context) int {
	if sweeper, ok := s.store.(store.Sweeper); ok {
		if n := sweeper.Sweep(ctx); n > 0 {
			log.Debug().Int("rooms", n).Msg("swept expired rooms")
		}
	}

	expired := 0
	for _, roomID := range s.rooms.RoomIDs() {
		_, err := s.store.GetRoom(ctx, roomID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrRoomNotFound) {
			log.Warn().Err(err).Str("room_id", roomID).Msg("cleanup: load room")
			continue
		}

		expired++
		metrics.RoomsDestroyedTotal.WithLabelValues(models.DestroyReasonExpired).Inc()
		log.Info().Str("room_id", roomID).Msg("room expired")
		publish(ctx, s.events, models.Event{
			Name:   models.EventDestroy,
			RoomID: roomID,
			Data:   models.DestroyPayload{IsDestroyed: true, Reason: models.DestroyReasonExpired},
		})
	}
	return expired
}
