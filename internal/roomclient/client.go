// Package roomclient talks to a burnroom server the way a browser would:
// the room token rides in a cookie jar and message text is sealed with the
// passcode-derived key before it leaves the process.
package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/adi-253/burnroom/internal/auth"
	"github.com/adi-253/burnroom/internal/e2ee"
	"github.com/adi-253/burnroom/internal/models"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Redirect   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client is safe for concurrent use. It holds at most one room token at a time,
// like a browser holding the server's cookie.
type Client struct {
	base *url.URL
	http *http.Client

	mu      sync.Mutex
	ciphers map[string]*e2ee.Cipher
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: 15 * time.Second},
		ciphers: make(map[string]*e2ee.Cipher),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	// Gate redirects are surfaced as errors, not followed.
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

// Token returns the room token currently held, or "".
func (c *Client) Token() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == auth.CookieName {
			return ck.Value
		}
	}
	return ""
}

// SetToken installs a token obtained earlier, e.g. by another process.
func (c *Client) SetToken(token string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{
		Name:  auth.CookieName,
		Value: token,
		Path:  "/",
	}})
}

// Create opens a new room. The client is admitted as its creator.
func (c *Client) Create(ctx context.Context) (*models.CreateRoomResponse, error) {
	var resp models.CreateRoomResponse
	if err := c.do(ctx, http.MethodPost, "/room", nil, &resp); err != nil {
		return nil, err
	}
	c.remember(resp.RoomID, resp.Passcode)
	return &resp, nil
}

// Join exchanges passcode for a token. username is an optional display name
// announced to the room.
func (c *Client) Join(ctx context.Context, roomID, passcode, username string) error {
	req := models.VerifyRequest{Passcode: passcode, Username: username}
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "verify"), req, nil); err != nil {
		return err
	}
	c.remember(roomID, passcode)
	return nil
}

// Send encrypts text and posts it.
func (c *Client) Send(ctx context.Context, roomID, sender, text string) error {
	cipher, err := c.cipher(ctx, roomID)
	if err != nil {
		return err
	}
	envelope, err := cipher.Encrypt(text)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return c.do(ctx, http.MethodPost, roomPath(roomID, "messages"),
		models.SendMessageRequest{Sender: sender, Text: envelope}, nil)
}

// Messages returns the room's history with text decrypted. Entries that do
// not open under the room key are returned as sent.
func (c *Client) Messages(ctx context.Context, roomID string) ([]models.MessageView, error) {
	cipher, err := c.cipher(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var resp models.GetMessagesResponse
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "messages"), nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Messages {
		resp.Messages[i].Text = cipher.Decrypt(resp.Messages[i].Text)
	}
	return resp.Messages, nil
}

// Typing sets the typing indicator for sender.
func (c *Client) Typing(ctx context.Context, roomID, sender string, isTyping bool) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "typing"),
		models.TypingRequest{Sender: sender, IsTyping: isTyping}, nil)
}

// TTL returns the room's remaining lifetime.
func (c *Client) TTL(ctx context.Context, roomID string) (time.Duration, error) {
	var resp models.TTLResponse
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "ttl"), nil, &resp); err != nil {
		return 0, err
	}
	return time.Duration(resp.TTL) * time.Second, nil
}

// Info returns the room id and passcode.
func (c *Client) Info(ctx context.Context, roomID string) (*models.RoomInfoResponse, error) {
	var resp models.RoomInfoResponse
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "info"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Destroy deletes the room for everyone.
func (c *Client) Destroy(ctx context.Context, roomID string) error {
	err := c.do(ctx, http.MethodDelete, roomPath(roomID, ""), nil, nil)
	if err == nil {
		c.mu.Lock()
		delete(c.ciphers, roomID)
		c.mu.Unlock()
	}
	return err
}

func (c *Client) remember(roomID, passcode string) {
	cipher, err := e2ee.ForRoom(passcode, roomID)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.ciphers[roomID] = cipher
	c.mu.Unlock()
}

// cipher returns the room key, fetching the passcode from the server when
// the token was installed without one.
func (c *Client) cipher(ctx context.Context, roomID string) (*e2ee.Cipher, error) {
	c.mu.Lock()
	cipher, ok := c.ciphers[roomID]
	c.mu.Unlock()
	if ok {
		return cipher, nil
	}

	info, err := c.Info(ctx, roomID)
	if err != nil {
		return nil, err
	}
	cipher, err = e2ee.ForRoom(info.Passcode, roomID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.ciphers[roomID] = cipher
	c.mu.Unlock()
	return cipher, nil
}

func roomPath(roomID, sub string) string {
	p := "/room/" + url.PathEscape(roomID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Error
			apiErr.Redirect = errBody.Redirect
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
