package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/config"
	"github.com/adi-253/burnroom/internal/logging"
	"github.com/adi-253/burnroom/internal/server"
	"github.com/adi-253/burnroom/internal/services"
	"github.com/adi-253/burnroom/internal/store"
	"github.com/adi-253/burnroom/internal/websocket"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Env, cfg.LogLevel)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer st.Close()

	// Realtime hub doubles as the event publisher for every service
	hub := websocket.NewHub()
	go hub.Run()

	// Background worker notifying subscribers of rooms that expired on their own
	cleanupService := services.NewCleanupService(st, hub, hub, cfg.CleanupInterval)
	go cleanupService.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           server.NewRouter(cfg, st, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.StoreBackend).
			Dur("room_ttl", cfg.RoomTTL).
			Msg("burnroom server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	cleanupService.Stop()
	hub.Stop()
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rs, err := store.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return rs, nil
	default:
		return store.NewMemory(), nil
	}
}
