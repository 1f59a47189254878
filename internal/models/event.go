package models

import "time"

// Event names published on a room channel.
const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventDestroy = "destroy"
	EventJoin    = "join"
)

// Reasons carried by a destroy event.
const (
	DestroyReasonDestroyed = "destroyed"
	DestroyReasonExpired   = "expired"
)

// Event is one realtime notification for the subscribers of a room.
type Event struct {
	Name   string `json:"event"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}

// MessagePayload is the public part of a message as broadcast to subscribers
type MessagePayload struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"roomId"`
}

// TypingPayload signals that a participant started or stopped typing
type TypingPayload struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"isTyping"`
}

// DestroyPayload tells subscribers the room is gone
type DestroyPayload struct {
	IsDestroyed bool   `json:"isDestroyed"`
	Reason      string `json:"reason"`
}

// JoinPayload announces a newly admitted participant
type JoinPayload struct {
	Username string `json:"username"`
}
