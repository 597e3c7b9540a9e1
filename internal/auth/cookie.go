package auth

import (
	"net/http"
	"time"
)

// TokenCookieName is the cookie carrying the session token
const TokenCookieName = "token"

// CookieConfig controls how the token cookie is written.
// The cookie is readable by the frontend, so it is not HttpOnly.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// SetTokenCookie writes the token cookie
func (c CookieConfig) SetTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(c.MaxAge.Seconds()),
		Expires:  time.Now().Add(c.MaxAge),
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie
func (c CookieConfig) ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
