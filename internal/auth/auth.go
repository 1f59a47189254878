// Package auth carries room tokens between clients and the server and keeps
// the gate's authorization on the request context.
package auth

import (
	"context"
	"net/http"

	"github.com/adi-253/burnroom/internal/services"
)

// CookieName is the cookie holding the caller's room token.
const CookieName = "x-auth-token"

// Carrier moves an opaque token in and out of HTTP exchanges. The core never
// depends on how the token travels, only that it stays with the caller.
type Carrier interface {
	Issue(w http.ResponseWriter, token string)
	Extract(r *http.Request) string
}

// CookieCarrier delivers tokens in an HTTP-only, same-site strict cookie.
type CookieCarrier struct {
	Secure bool
}

func (c CookieCarrier) Issue(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieCarrier) Extract(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

type contextKey struct{}

// WithAuthorization stores the gate's result on ctx.
func WithAuthorization(ctx context.Context, a *services.Authorization) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the authorization placed by the gate, if any.
func FromContext(ctx context.Context) (*services.Authorization, bool) {
	a, ok := ctx.Value(contextKey{}).(*services.Authorization)
	return a, ok && a != nil
}
