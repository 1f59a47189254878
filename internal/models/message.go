package models

import "time"

// Message represents one chat line as it is kept in a room's log.
// Text is usually ciphertext produced by the client; the server treats it as opaque.
type Message struct {
	// ID is a time-ordered unique identifier
	ID string `json:"id"`

	// RoomID is the room this message belongs to
	RoomID string `json:"roomId"`

	// Sender is the caller-supplied display name (untrusted)
	Sender string `json:"sender"`

	// Text is the message payload, possibly an encryption envelope
	Text string `json:"text"`

	// Timestamp is when the message was appended
	Timestamp time.Time `json:"timestamp"`

	// Token is the issuing token of the sender at posting time.
	// It stays inside the store and is only ever exposed as MessageView.Own.
	Token string `json:"token"`
}

// View redacts the issuing token into an equality flag for the given caller.
func (m Message) View(callerToken string) MessageView {
	return MessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Sender:    m.Sender,
		Text:      m.Text,
		Timestamp: m.Timestamp,
		Own:       callerToken != "" && m.Token == callerToken,
	}
}

// MessageView is the sanitized form of a Message returned to callers
type MessageView struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Own       bool      `json:"own"`
}

// SendMessageRequest is the request body for posting a message
type SendMessageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// TypingRequest is the request body for a typing indicator
type TypingRequest struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"isTyping"`
}

// GetMessagesResponse is the response for fetching messages
type GetMessagesResponse struct {
	Messages []MessageView `json:"messages"`
}
