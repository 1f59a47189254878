package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/models"
)

// Publisher delivers room events to live subscribers. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// publish sends ev and only logs failures; callers never retry.
func publish(ctx context.Context, p Publisher, ev models.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("room_id", ev.RoomID).Str("event", ev.Name).Msg("publish event")
	}
}
