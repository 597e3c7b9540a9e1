package handlers

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// GoogleHandler runs the Google sign-in redirect flow
type GoogleHandler struct {
	accounts    *service.AccountService
	provider    auth.OAuthProvider
	cookies     auth.CookieConfig
	frontendURL string
}

// NewGoogleHandler creates a new Google sign-in handler. provider may be nil
// when Google sign-in is not configured.
func NewGoogleHandler(accounts *service.AccountService, provider auth.OAuthProvider, cookies auth.CookieConfig, frontendURL string) *GoogleHandler {
	return &GoogleHandler{
		accounts:    accounts,
		provider:    provider,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Start redirects to the Google consent screen
// GET /api/auth/google
func (h *GoogleHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		response.Error(w, r, apperr.NotFound("Google sign-in"))
		return
	}

	state, err := auth.NewOAuthState()
	if err != nil {
		response.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow and sends the browser back to the frontend
// GET /api/auth/google/callback
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	if h.provider == nil {
		response.Error(w, r, apperr.NotFound("Google sign-in"))
		return
	}

	// the state cookie is single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/api/auth/google",
		MaxAge: -1,
	})

	stateCookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		log.Warn().Msg("google callback with invalid state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, "access_denied")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("google code exchange failed")
		h.fail(w, r, "exchange_failed")
		return
	}

	res, err := h.accounts.GoogleLogin(r.Context(), profile)
	if err != nil {
		log.Warn().Err(err).Msg("google login rejected")
		reason := "login_failed"
		if e, ok := apperr.As(err); ok {
			reason = strings.ToLower(e.Code)
		}
		h.fail(w, r, reason)
		return
	}

	h.cookies.SetTokenCookie(w, res.Token)
	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
}

func (h *GoogleHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}
