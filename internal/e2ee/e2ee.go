// Package e2ee is the client-side message cipher. The key is derived from the
// room passcode with the room id as salt and never leaves the client.
package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2-SHA256 work factor for room keys.
	Iterations = 100_000

	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	separator = ":"
)

var encoding = base64.StdEncoding.Strict()

// DeriveKey returns the 256-bit room key for (passcode, roomID).
func DeriveKey(passcode, roomID string) []byte {
	return pbkdf2.Key([]byte(passcode), []byte(roomID), Iterations, KeySize, sha256.New)
}

// Cipher seals and opens message text with AES-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("e2ee: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// ForRoom derives the room key and builds a Cipher from it.
func ForRoom(passcode, roomID string) (*Cipher, error) {
	return NewCipher(DeriveKey(passcode, roomID))
}

// Encrypt returns the envelope base64(nonce):base64(ciphertext||tag).
// Every call draws a fresh 96-bit nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return encoding.EncodeToString(nonce) + separator + encoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts an envelope.
func (c *Cipher) Open(envelope string) (string, error) {
	parts := strings.Split(envelope, separator)
	if len(parts) != 2 {
		return "", fmt.Errorf("e2ee: malformed envelope")
	}
	nonce, err := encoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("e2ee: nonce must be %d bytes", c.aead.NonceSize())
	}
	sealed, err := encoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Decrypt is Open with a passthrough: any failure returns the input
// unchanged, so plaintext history and foreign-key messages still render.
func (c *Cipher) Decrypt(envelope string) string {
	plaintext, err := c.Open(envelope)
	if err != nil {
		return envelope
	}
	return plaintext
}
