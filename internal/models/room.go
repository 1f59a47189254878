package models

import "time"

// Room is the metadata record of an ephemeral, passcode-gated chat room.
// Rooms are never renewed: they disappear when their fixed lifetime runs out
// or when a participant destroys them.
type Room struct {
	// ID is the opaque room identifier used in shareable URLs
	ID string `json:"id"`

	// Passcode is the 6-digit shared secret, kept as a string to preserve leading zeros
	Passcode string `json:"passcode"`

	// CreatedAt is when the room was created; the self-destruct deadline is measured from it
	CreatedAt time.Time `json:"createdAt"`

	// ConnectedTokens holds one capability token per admitted participant
	ConnectedTokens []string `json:"-"`
}

// HasToken reports whether token belongs to the room's admitted set.
func (r *Room) HasToken(token string) bool {
	if token == "" {
		return false
	}
	for _, t := range r.ConnectedTokens {
		if t == token {
			return true
		}
	}
	return false
}

// CreateRoomResponse is the response after creating a room.
// The creator's token travels in a cookie, never in the body.
type CreateRoomResponse struct {
	RoomID   string `json:"roomId"`
	Passcode string `json:"passcode"`
}

// VerifyRequest is the request body for exchanging a passcode for a token
type VerifyRequest struct {
	Passcode string `json:"passcode"`
	Username string `json:"username,omitempty"`
}

// RoomInfoResponse is returned to authorized participants only
type RoomInfoResponse struct {
	RoomID   string `json:"roomId"`
	Passcode string `json:"passcode"`
}

// TTLResponse carries the remaining lifetime in whole seconds, never negative
type TTLResponse struct {
	TTL int64 `json:"ttl"`
}

// SuccessResponse is the generic acknowledgement body
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect,omitempty"`
}
